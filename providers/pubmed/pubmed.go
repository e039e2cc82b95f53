// Package pubmed serves PubMed literature search tools backed by the
// NCBI Entrez E-utilities API.
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/effective-security/x/values"

	"github.com/effective-security/biomcp/mcpserver"
	"github.com/effective-security/biomcp/providers/internal/apiclient"
)

// DefaultBaseURL is the Entrez E-utilities endpoint.
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

const (
	database    = "pubmed"
	toolName    = "pubmed-mcp"
	resultLimit = 10
)

// Provider implements the PubMed tool set.
type Provider struct {
	client *apiclient.Client
	email  string
}

// Option configures the provider.
type Option func(*Provider)

// WithClient overrides the API client, used by tests.
func WithClient(c *apiclient.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// WithEmail sets the contact email Entrez asks clients to send.
func WithEmail(email string) Option {
	return func(p *Provider) {
		p.email = email
	}
}

// NewProvider creates the PubMed provider.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		client: apiclient.New(DefaultBaseURL),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RegisterTools registers the PubMed tools on the server.
func (p *Provider) RegisterTools(s *mcpserver.Server) error {
	if err := mcpserver.AddTool(s, "search_pubmed",
		"Search PubMed for articles matching the query.", p.SearchPubmed); err != nil {
		return err
	}
	if err := mcpserver.AddTool(s, "get_pubmed_abstract",
		"Get the abstract for a specific PubMed article by its PMID.", p.GetAbstract); err != nil {
		return err
	}
	if err := mcpserver.AddTool(s, "get_related_articles",
		"Find articles related to a specific PubMed article.", p.GetRelatedArticles); err != nil {
		return err
	}
	return mcpserver.AddTool(s, "find_by_author",
		"Search PubMed for articles by a specific author.", p.FindByAuthor)
}

// SearchArgs are the arguments of search_pubmed.
type SearchArgs struct {
	Query      string `json:"query" jsonschema:"description=Search query in PubMed syntax"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results to return"`
}

// AbstractArgs are the arguments of get_pubmed_abstract.
type AbstractArgs struct {
	PMID string `json:"pmid" jsonschema:"description=PubMed ID of the article"`
}

// RelatedArgs are the arguments of get_related_articles.
type RelatedArgs struct {
	PMID       string `json:"pmid" jsonschema:"description=PubMed ID of the seed article"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of related articles to return"`
}

// AuthorArgs are the arguments of find_by_author.
type AuthorArgs struct {
	Author     string `json:"author" jsonschema:"description=Author name, e.g. Smith JB"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results to return"`
}

type esearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type articleSummary struct {
	Title   string `json:"title"`
	PubDate string `json:"pubdate"`
	Source  string `json:"source"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

type elinkResponse struct {
	LinkSets []struct {
		LinkSetDBs []struct {
			LinkName string     `json:"linkname"`
			Links    []entrezID `json:"links"`
		} `json:"linksetdbs"`
	} `json:"linksets"`
}

// entrezID tolerates numeric and string encodings of article ids.
type entrezID string

func (e *entrezID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = entrezID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*e = entrezID(n.String())
	return nil
}

func (p *Provider) params(extra url.Values) url.Values {
	params := url.Values{
		"db":   {database},
		"tool": {toolName},
	}
	if p.email != "" {
		params.Set("email", p.email)
	}
	for k, v := range extra {
		params[k] = v
	}
	return params
}

// SearchPubmed searches for articles and returns formatted summaries.
func (p *Provider) SearchPubmed(ctx context.Context, args SearchArgs) (string, error) {
	return p.search(ctx, args.Query, values.NumbersCoalesce(args.MaxResults, resultLimit))
}

// FindByAuthor searches for articles by author name.
func (p *Provider) FindByAuthor(ctx context.Context, args AuthorArgs) (string, error) {
	query := fmt.Sprintf("%s[Author]", args.Author)
	return p.search(ctx, query, values.NumbersCoalesce(args.MaxResults, resultLimit))
}

func (p *Provider) search(ctx context.Context, query string, maxResults int) (string, error) {
	var search esearchResponse
	err := p.client.GetJSON(ctx, "esearch.fcgi", p.params(url.Values{
		"term":    {query},
		"retmax":  {strconv.Itoa(maxResults)},
		"retmode": {"json"},
	}), &search)
	if err != nil {
		return "", err
	}

	ids := search.ESearchResult.IDList
	if len(ids) == 0 {
		return "No results found for your query.", nil
	}
	return p.summaries(ctx, ids)
}

// GetAbstract fetches the plain-text abstract of an article.
func (p *Provider) GetAbstract(ctx context.Context, args AbstractArgs) (string, error) {
	text, err := p.client.GetText(ctx, "efetch.fcgi", p.params(url.Values{
		"id":      {args.PMID},
		"rettype": {"abstract"},
	}))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "No abstract available for this article.", nil
	}
	return text, nil
}

// GetRelatedArticles finds articles related to the seed article.
func (p *Provider) GetRelatedArticles(ctx context.Context, args RelatedArgs) (string, error) {
	maxResults := values.NumbersCoalesce(args.MaxResults, 5)

	var link elinkResponse
	err := p.client.GetJSON(ctx, "elink.fcgi", p.params(url.Values{
		"id":       {args.PMID},
		"dbfrom":   {database},
		"cmd":      {"neighbor_score"},
		"linkname": {"pubmed_pubmed"},
		"retmode":  {"json"},
	}), &link)
	if err != nil {
		return "", err
	}

	var relatedIDs []string
	for _, linkset := range link.LinkSets {
		for _, db := range linkset.LinkSetDBs {
			if db.LinkName != "pubmed_pubmed" {
				continue
			}
			for _, id := range db.Links {
				// the seed article links to itself with the top score
				if string(id) == args.PMID {
					continue
				}
				relatedIDs = append(relatedIDs, string(id))
				if len(relatedIDs) >= maxResults {
					break
				}
			}
			break
		}
	}
	if len(relatedIDs) == 0 {
		return "No related articles found.", nil
	}
	return p.summaries(ctx, relatedIDs)
}

func (p *Provider) summaries(ctx context.Context, ids []string) (string, error) {
	var summary esummaryResponse
	err := p.client.GetJSON(ctx, "esummary.fcgi", p.params(url.Values{
		"id":      {strings.Join(ids, ",")},
		"retmode": {"json"},
	}), &summary)
	if err != nil {
		return "", err
	}

	var formatted []string
	for _, id := range ids {
		raw, ok := summary.Result[id]
		if !ok {
			continue
		}
		var article articleSummary
		if err := json.Unmarshal(raw, &article); err != nil {
			continue
		}

		var names []string
		for _, a := range article.Authors {
			if a.Name != "" {
				names = append(names, a.Name)
			}
		}
		authors := strings.Join(names, ", ")
		if authors == "" {
			authors = "No authors listed"
		}

		formatted = append(formatted, fmt.Sprintf(
			"Title: %s\nAuthors: %s\nPublished: %s in %s\nPMID: %s",
			values.StringsCoalesce(article.Title, "No title"),
			authors,
			values.StringsCoalesce(article.PubDate, "Unknown date"),
			values.StringsCoalesce(article.Source, "Unknown journal"),
			id,
		))
	}
	if len(formatted) == 0 {
		return "No article details could be retrieved.", nil
	}
	return strings.Join(formatted, "\n\n---\n\n"), nil
}
