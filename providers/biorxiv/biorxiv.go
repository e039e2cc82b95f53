// Package biorxiv serves preprint discovery tools backed by the public
// bioRxiv/medRxiv details API.
package biorxiv

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"

	"github.com/effective-security/biomcp/mcpserver"
	"github.com/effective-security/biomcp/providers/internal/apiclient"
)

// DefaultBaseURL is the bioRxiv API endpoint, shared by both servers.
const DefaultBaseURL = "https://api.biorxiv.org"

// Preprint servers exposed by the API.
const (
	ServerBiorxiv = "biorxiv"
	ServerMedrxiv = "medrxiv"
)

const (
	resultLimit = 10
	recentDays  = 7
)

// Provider implements the preprint tool set.
type Provider struct {
	client *apiclient.Client
	server string
}

// Option configures the provider.
type Option func(*Provider)

// WithClient overrides the API client, used by tests.
func WithClient(c *apiclient.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// WithServer selects the default preprint server, biorxiv or medrxiv.
func WithServer(server string) Option {
	return func(p *Provider) {
		p.server = server
	}
}

// NewProvider creates the bioRxiv/medRxiv provider.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		client: apiclient.New(DefaultBaseURL),
		server: ServerBiorxiv,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RegisterTools registers the preprint tools on the server.
func (p *Provider) RegisterTools(s *mcpserver.Server) error {
	if err := mcpserver.AddTool(s, "search_preprints",
		"Search for preprints posted within a date range.", p.SearchPreprints); err != nil {
		return err
	}
	if err := mcpserver.AddTool(s, "get_preprint_by_doi",
		"Get detailed information about a specific preprint by its DOI.", p.GetPreprintByDOI); err != nil {
		return err
	}
	if err := mcpserver.AddTool(s, "find_published_version",
		"Find the published journal version of a preprint by its DOI.", p.FindPublishedVersion); err != nil {
		return err
	}
	return mcpserver.AddTool(s, "get_recent_preprints",
		"Get preprints posted in the last few days.", p.GetRecentPreprints)
}

// SearchArgs are the arguments of search_preprints.
type SearchArgs struct {
	StartDate  string `json:"start_date" jsonschema:"description=Start date in YYYY-MM-DD format"`
	EndDate    string `json:"end_date" jsonschema:"description=End date in YYYY-MM-DD format"`
	Category   string `json:"category,omitempty" jsonschema:"description=Category to filter by, e.g. cell_biology"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results to return"`
	Server     string `json:"server,omitempty" jsonschema:"description=Preprint server, biorxiv or medrxiv"`
}

// DOIArgs are the arguments of get_preprint_by_doi and find_published_version.
type DOIArgs struct {
	DOI    string `json:"doi" jsonschema:"description=DOI of the preprint, e.g. 10.1101/2020.01.01.123456"`
	Server string `json:"server,omitempty" jsonschema:"description=Preprint server, biorxiv or medrxiv"`
}

// RecentArgs are the arguments of get_recent_preprints.
type RecentArgs struct {
	Days       int    `json:"days,omitempty" jsonschema:"description=Number of days to look back"`
	Category   string `json:"category,omitempty" jsonschema:"description=Category to filter by, e.g. cell_biology"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results to return"`
	Server     string `json:"server,omitempty" jsonschema:"description=Preprint server, biorxiv or medrxiv"`
}

type preprint struct {
	DOI         string `json:"doi"`
	Title       string `json:"title"`
	Authors     string `json:"authors"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Abstract    string `json:"abstract"`
	License     string `json:"license"`
	Author      string `json:"author_corresponding"`
	Institution string `json:"author_corresponding_institution"`
}

type publication struct {
	PreprintDOI   string `json:"biorxiv_doi"`
	PublishedDOI  string `json:"published_doi"`
	Journal       string `json:"published_journal"`
	PreprintTitle string `json:"preprint_title"`
	PreprintDate  string `json:"preprint_date"`
	PublishedDate string `json:"published_date"`
}

type detailsResponse struct {
	Collection []preprint `json:"collection"`
}

type pubsResponse struct {
	Collection []publication `json:"collection"`
}

func (p *Provider) serverName(override string) (string, error) {
	server := values.StringsCoalesce(override, p.server)
	if server != ServerBiorxiv && server != ServerMedrxiv {
		return "", errors.Newf("unknown preprint server: %s", server)
	}
	return server, nil
}

// GetPreprintByDOI fetches the full record of one preprint.
func (p *Provider) GetPreprintByDOI(ctx context.Context, args DOIArgs) (string, error) {
	server, err := p.serverName(args.Server)
	if err != nil {
		return "", err
	}

	var details detailsResponse
	err = p.client.GetJSON(ctx, fmt.Sprintf("details/%s/%s/na/json", server, args.DOI), nil, &details)
	if err != nil {
		return "", err
	}
	if len(details.Collection) == 0 {
		return fmt.Sprintf("No preprint found with DOI: %s", args.DOI), nil
	}

	pre := details.Collection[0]
	return strings.Join([]string{
		"Title: " + values.StringsCoalesce(pre.Title, "No title"),
		"Authors: " + values.StringsCoalesce(pre.Authors, "No authors listed"),
		"DOI: " + values.StringsCoalesce(pre.DOI, "Unknown DOI"),
		"Date: " + values.StringsCoalesce(pre.Date, "Unknown date"),
		"Category: " + values.StringsCoalesce(pre.Category, "Unknown category"),
		"License: " + values.StringsCoalesce(pre.License, "Unknown license"),
		"Corresponding Author: " + values.StringsCoalesce(pre.Author, "Unknown"),
		"Institution: " + values.StringsCoalesce(pre.Institution, "Unknown"),
		"Abstract: " + values.StringsCoalesce(pre.Abstract, "No abstract available"),
	}, "\n\n"), nil
}

// FindPublishedVersion resolves a preprint DOI to its journal publication.
func (p *Provider) FindPublishedVersion(ctx context.Context, args DOIArgs) (string, error) {
	server, err := p.serverName(args.Server)
	if err != nil {
		return "", err
	}

	var pubs pubsResponse
	err = p.client.GetJSON(ctx, fmt.Sprintf("pubs/%s/%s/na/json", server, args.DOI), nil, &pubs)
	if err != nil {
		return "", err
	}
	if len(pubs.Collection) == 0 {
		return fmt.Sprintf("No published version found for preprint with DOI: %s", args.DOI), nil
	}

	pub := pubs.Collection[0]
	return strings.Join([]string{
		"Preprint Title: " + values.StringsCoalesce(pub.PreprintTitle, "No title"),
		"Preprint DOI: " + values.StringsCoalesce(pub.PreprintDOI, "Unknown preprint DOI"),
		"Preprint Date: " + values.StringsCoalesce(pub.PreprintDate, "Unknown preprint date"),
		"Published DOI: " + values.StringsCoalesce(pub.PublishedDOI, "Unknown published DOI"),
		"Journal: " + values.StringsCoalesce(pub.Journal, "Unknown journal"),
		"Publication Date: " + values.StringsCoalesce(pub.PublishedDate, "Unknown publication date"),
	}, "\n\n"), nil
}

// GetRecentPreprints lists preprints posted in the last days.
func (p *Provider) GetRecentPreprints(ctx context.Context, args RecentArgs) (string, error) {
	server, err := p.serverName(args.Server)
	if err != nil {
		return "", err
	}
	days := values.NumbersCoalesce(args.Days, recentDays)

	var details detailsResponse
	err = p.client.GetJSON(ctx, fmt.Sprintf("details/%s/%dd/0", server, days),
		categoryParams(args.Category), &details)
	if err != nil {
		return "", err
	}
	if len(details.Collection) == 0 {
		return fmt.Sprintf("No recent preprints found in the last %d days.", days), nil
	}
	return formatList(details.Collection, values.NumbersCoalesce(args.MaxResults, resultLimit)), nil
}

// SearchPreprints lists preprints posted within the date range.
func (p *Provider) SearchPreprints(ctx context.Context, args SearchArgs) (string, error) {
	server, err := p.serverName(args.Server)
	if err != nil {
		return "", err
	}

	var details detailsResponse
	err = p.client.GetJSON(ctx,
		fmt.Sprintf("details/%s/%s/%s/0", server, args.StartDate, args.EndDate),
		categoryParams(args.Category), &details)
	if err != nil {
		return "", err
	}
	if len(details.Collection) == 0 {
		return fmt.Sprintf("No preprints found between %s and %s.", args.StartDate, args.EndDate), nil
	}
	return formatList(details.Collection, values.NumbersCoalesce(args.MaxResults, resultLimit)), nil
}

func categoryParams(category string) url.Values {
	if category == "" {
		return nil
	}
	return url.Values{"category": {category}}
}

func formatList(collection []preprint, maxResults int) string {
	if len(collection) > maxResults {
		collection = collection[:maxResults]
	}
	var formatted []string
	for _, pre := range collection {
		formatted = append(formatted, fmt.Sprintf(
			"Title: %s\nAuthors: %s\nDOI: %s\nDate: %s\nCategory: %s",
			values.StringsCoalesce(pre.Title, "No title"),
			values.StringsCoalesce(pre.Authors, "No authors listed"),
			values.StringsCoalesce(pre.DOI, "Unknown DOI"),
			values.StringsCoalesce(pre.Date, "Unknown date"),
			values.StringsCoalesce(pre.Category, "Unknown category"),
		))
	}
	return strings.Join(formatted, "\n\n---\n\n")
}
