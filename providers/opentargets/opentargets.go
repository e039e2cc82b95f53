// Package opentargets serves gene target and disease association tools
// backed by the Open Targets Platform API.
package opentargets

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/effective-security/x/values"

	"github.com/effective-security/biomcp/mcpserver"
	"github.com/effective-security/biomcp/providers/internal/apiclient"
)

// DefaultBaseURL is the Open Targets Platform API endpoint.
const DefaultBaseURL = "https://api.platform.opentargets.org/api/v4"

const resultLimit = 10

// Provider implements the Open Targets tool set.
type Provider struct {
	client *apiclient.Client
}

// Option configures the provider.
type Option func(*Provider)

// WithClient overrides the API client, used by tests.
func WithClient(c *apiclient.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// NewProvider creates the Open Targets provider.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		client: apiclient.New(DefaultBaseURL),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RegisterTools registers the Open Targets tools on the server.
func (p *Provider) RegisterTools(s *mcpserver.Server) error {
	if err := mcpserver.AddTool(s, "search_targets",
		"Search Open Targets for gene targets matching the query.", p.SearchTargets); err != nil {
		return err
	}
	if err := mcpserver.AddTool(s, "get_target_details",
		"Get detailed information about a specific target by ID.", p.GetTargetDetails); err != nil {
		return err
	}
	if err := mcpserver.AddTool(s, "search_diseases",
		"Search for diseases in Open Targets.", p.SearchDiseases); err != nil {
		return err
	}
	if err := mcpserver.AddTool(s, "get_target_associated_diseases",
		"Get diseases associated with a specific target.", p.GetTargetAssociatedDiseases); err != nil {
		return err
	}
	if err := mcpserver.AddTool(s, "get_disease_associated_targets",
		"Get targets associated with a specific disease.", p.GetDiseaseAssociatedTargets); err != nil {
		return err
	}
	return mcpserver.AddTool(s, "search_drugs",
		"Search for drugs in Open Targets.", p.SearchDrugs)
}

// SearchArgs are the arguments of the search tools.
type SearchArgs struct {
	Query      string `json:"query" jsonschema:"description=Search query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results to return"`
}

// TargetArgs are the arguments of the target detail and association tools.
type TargetArgs struct {
	TargetID   string `json:"target_id" jsonschema:"description=Open Targets ID for the target, e.g. ENSG00000157764"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results to return"`
}

// DiseaseArgs are the arguments of get_disease_associated_targets.
type DiseaseArgs struct {
	DiseaseID  string `json:"disease_id" jsonschema:"description=Open Targets disease ID"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results to return"`
}

type searchResponse struct {
	Data []searchHit `json:"data"`
}

type searchHit struct {
	ID             string `json:"id"`
	Entity         string `json:"entity"`
	Name           string `json:"name"`
	ApprovedSymbol string `json:"approved_symbol"`
}

type targetResponse struct {
	ApprovedSymbol       string `json:"approvedSymbol"`
	ApprovedName         string `json:"approvedName"`
	Biotype              string `json:"biotype"`
	FunctionDescriptions []struct {
		Label string `json:"label"`
	} `json:"functionDescriptions"`
	GenomicLocation struct {
		Chromosome string `json:"chromosome"`
	} `json:"genomicLocation"`
}

type associationResponse struct {
	Data []struct {
		Score  float64 `json:"score"`
		Target struct {
			ID             string `json:"id"`
			ApprovedSymbol string `json:"approvedSymbol"`
			ApprovedName   string `json:"approvedName"`
		} `json:"target"`
		Disease struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"disease"`
	} `json:"data"`
}

func (p *Provider) searchEntity(ctx context.Context, query, entity string, maxResults int) ([]searchHit, error) {
	var resp searchResponse
	err := p.client.GetJSON(ctx, "search", url.Values{
		"q":    {query},
		"size": {strconv.Itoa(values.NumbersCoalesce(maxResults, resultLimit))},
	}, &resp)
	if err != nil {
		return nil, err
	}

	var hits []searchHit
	for _, item := range resp.Data {
		if item.Entity == entity {
			hits = append(hits, item)
		}
	}
	return hits, nil
}

// SearchTargets searches for gene targets.
func (p *Provider) SearchTargets(ctx context.Context, args SearchArgs) (string, error) {
	targets, err := p.searchEntity(ctx, args.Query, "target", args.MaxResults)
	if err != nil {
		return "", err
	}
	if len(targets) == 0 {
		return "No targets found for your query.", nil
	}

	var formatted []string
	for _, t := range targets {
		formatted = append(formatted, fmt.Sprintf(
			"Symbol: %s\nName: %s\nTarget ID: %s",
			values.StringsCoalesce(t.ApprovedSymbol, "Unknown symbol"),
			values.StringsCoalesce(t.Name, "No name"),
			values.StringsCoalesce(t.ID, "Unknown ID"),
		))
	}
	return strings.Join(formatted, "\n\n---\n\n"), nil
}

// SearchDiseases searches for diseases.
func (p *Provider) SearchDiseases(ctx context.Context, args SearchArgs) (string, error) {
	diseases, err := p.searchEntity(ctx, args.Query, "disease", args.MaxResults)
	if err != nil {
		return "", err
	}
	if len(diseases) == 0 {
		return "No diseases found for your query.", nil
	}

	var formatted []string
	for _, d := range diseases {
		formatted = append(formatted, fmt.Sprintf(
			"Disease: %s\nDisease ID: %s",
			values.StringsCoalesce(d.Name, "No name"),
			values.StringsCoalesce(d.ID, "Unknown ID"),
		))
	}
	return strings.Join(formatted, "\n\n---\n\n"), nil
}

// SearchDrugs searches for drugs.
func (p *Provider) SearchDrugs(ctx context.Context, args SearchArgs) (string, error) {
	drugs, err := p.searchEntity(ctx, args.Query, "drug", args.MaxResults)
	if err != nil {
		return "", err
	}
	if len(drugs) == 0 {
		return "No drugs found for your query.", nil
	}

	var formatted []string
	for _, d := range drugs {
		formatted = append(formatted, fmt.Sprintf(
			"Drug: %s\nDrug ID: %s",
			values.StringsCoalesce(d.Name, "No name"),
			values.StringsCoalesce(d.ID, "Unknown ID"),
		))
	}
	return strings.Join(formatted, "\n\n---\n\n"), nil
}

// GetTargetDetails fetches details of one gene target.
func (p *Provider) GetTargetDetails(ctx context.Context, args TargetArgs) (string, error) {
	var target targetResponse
	err := p.client.GetJSON(ctx, "target/"+url.PathEscape(args.TargetID), nil, &target)
	if err != nil {
		return "", err
	}

	var functions []string
	for _, f := range target.FunctionDescriptions {
		if f.Label != "" {
			functions = append(functions, f.Label)
		}
	}
	functionsText := strings.Join(functions, "\n  - ")
	if functionsText == "" {
		functionsText = "Not available"
	}

	return fmt.Sprintf(
		"Symbol: %s\nName: %s\nTarget ID: %s\nBiotype: %s\nChromosome: %s\nGene Function:\n  - %s",
		values.StringsCoalesce(target.ApprovedSymbol, "Unknown symbol"),
		values.StringsCoalesce(target.ApprovedName, "No name"),
		args.TargetID,
		values.StringsCoalesce(target.Biotype, "Unknown biotype"),
		values.StringsCoalesce(target.GenomicLocation.Chromosome, "Unknown"),
		functionsText,
	), nil
}

// GetTargetAssociatedDiseases lists diseases associated with a target.
func (p *Provider) GetTargetAssociatedDiseases(ctx context.Context, args TargetArgs) (string, error) {
	var resp associationResponse
	err := p.client.GetJSON(ctx, "association/filter", url.Values{
		"target": {args.TargetID},
		"size":   {strconv.Itoa(values.NumbersCoalesce(args.MaxResults, resultLimit))},
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return fmt.Sprintf("No diseases associated with target ID: %s", args.TargetID), nil
	}

	var formatted []string
	for _, assoc := range resp.Data {
		formatted = append(formatted, fmt.Sprintf(
			"Disease: %s\nDisease ID: %s\nAssociation Score: %.3f",
			values.StringsCoalesce(assoc.Disease.Name, "No name"),
			values.StringsCoalesce(assoc.Disease.ID, "Unknown ID"),
			assoc.Score,
		))
	}
	return strings.Join(formatted, "\n\n---\n\n"), nil
}

// GetDiseaseAssociatedTargets lists targets associated with a disease.
func (p *Provider) GetDiseaseAssociatedTargets(ctx context.Context, args DiseaseArgs) (string, error) {
	var resp associationResponse
	err := p.client.GetJSON(ctx, "association/filter", url.Values{
		"disease": {args.DiseaseID},
		"size":    {strconv.Itoa(values.NumbersCoalesce(args.MaxResults, resultLimit))},
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return fmt.Sprintf("No targets associated with disease ID: %s", args.DiseaseID), nil
	}

	var formatted []string
	for _, assoc := range resp.Data {
		formatted = append(formatted, fmt.Sprintf(
			"Symbol: %s\nName: %s\nTarget ID: %s\nAssociation Score: %.3f",
			values.StringsCoalesce(assoc.Target.ApprovedSymbol, "Unknown symbol"),
			values.StringsCoalesce(assoc.Target.ApprovedName, "No name"),
			values.StringsCoalesce(assoc.Target.ID, "Unknown ID"),
			assoc.Score,
		))
	}
	return strings.Join(formatted, "\n\n---\n\n"), nil
}
