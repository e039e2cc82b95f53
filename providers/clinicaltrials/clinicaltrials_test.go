package clinicaltrials_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effective-security/biomcp/providers/clinicaltrials"
	"github.com/effective-security/biomcp/providers/internal/apiclient"
)

const studiesJSON = `{"studies":[
	{"protocolSection":{
		"identificationModule":{"nctId":"NCT01234567","briefTitle":"Olaparib in BRCA-Mutated Breast Cancer"},
		"statusModule":{"overallStatus":"RECRUITING"},
		"phaseModule":{"phase":"PHASE3"}
	}},
	{"protocolSection":{
		"identificationModule":{"nctId":"NCT07654321"}
	}}
]}`

func newProvider(t *testing.T, handler http.HandlerFunc) *clinicaltrials.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return clinicaltrials.NewProvider(clinicaltrials.WithClient(apiclient.New(srv.URL)))
}

func TestSearchTrials(t *testing.T) {
	t.Parallel()

	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/studies", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "olaparib", q.Get("query.term"))
		assert.Equal(t, "10", q.Get("pageSize"))
		assert.Equal(t, "json", q.Get("format"))
		_, _ = w.Write([]byte(studiesJSON))
	})

	out, err := p.SearchTrials(context.Background(), clinicaltrials.SearchArgs{Query: "olaparib"})
	require.NoError(t, err)

	assert.Contains(t, out, "Title: Olaparib in BRCA-Mutated Breast Cancer")
	assert.Contains(t, out, "ID: NCT01234567")
	assert.Contains(t, out, "Status: RECRUITING")
	assert.Contains(t, out, "Phase: PHASE3")
	// Missing modules get readable placeholders.
	assert.Contains(t, out, "Title: No title")
	assert.Contains(t, out, "Status: Unknown status")
	assert.Contains(t, out, "\n\n---\n\n")
}

func TestSearchTrialsNoResults(t *testing.T) {
	t.Parallel()

	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"studies":[]}`))
	})

	out, err := p.SearchTrials(context.Background(), clinicaltrials.SearchArgs{Query: "zxqv"})
	require.NoError(t, err)
	assert.Equal(t, "No results found for your query.", out)
}

func TestFindTrialsByCondition(t *testing.T) {
	t.Parallel()

	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "glioblastoma", r.URL.Query().Get("query.cond"))
		assert.Equal(t, "5", r.URL.Query().Get("pageSize"))
		_, _ = w.Write([]byte(studiesJSON))
	})

	out, err := p.FindTrialsByCondition(context.Background(),
		clinicaltrials.ConditionArgs{Condition: "glioblastoma", MaxResults: 5})
	require.NoError(t, err)
	assert.Contains(t, out, "NCT01234567")
}

func TestFindTrialsByLocation(t *testing.T) {
	t.Parallel()

	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Boston", r.URL.Query().Get("query.locn"))
		_, _ = w.Write([]byte(studiesJSON))
	})

	out, err := p.FindTrialsByLocation(context.Background(),
		clinicaltrials.LocationArgs{Location: "Boston"})
	require.NoError(t, err)
	assert.Contains(t, out, "NCT01234567")
}

func TestGetTrialDetails(t *testing.T) {
	t.Parallel()

	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/studies/NCT01234567", r.URL.Path)
		_, _ = w.Write([]byte(`{"protocolSection":{
			"identificationModule":{
				"nctId":"NCT01234567",
				"briefTitle":"Olaparib Study",
				"officialTitle":"A Phase 3 Study of Olaparib"
			},
			"statusModule":{"overallStatus":"COMPLETED"},
			"phaseModule":{"phase":"PHASE3"},
			"sponsorCollaboratorsModule":{"leadSponsor":{"name":"AstraZeneca"}},
			"designModule":{"studyType":"INTERVENTIONAL","primaryPurpose":"TREATMENT"},
			"conditionsModule":{"conditions":["Breast Cancer","BRCA1 Mutation"]},
			"descriptionModule":{"detailedDescription":"Randomized, double-blind trial."}
		}}`))
	})

	out, err := p.GetTrialDetails(context.Background(), clinicaltrials.DetailsArgs{NCTID: "NCT01234567"})
	require.NoError(t, err)

	assert.Contains(t, out, "NCT ID: NCT01234567")
	assert.Contains(t, out, "Brief Title: Olaparib Study")
	assert.Contains(t, out, "Official Title: A Phase 3 Study of Olaparib")
	assert.Contains(t, out, "Sponsor: AstraZeneca")
	assert.Contains(t, out, "Study Type: INTERVENTIONAL")
	assert.Contains(t, out, "Conditions: Breast Cancer, BRCA1 Mutation")
	assert.Contains(t, out, "Detailed Description: Randomized, double-blind trial.")
}

func TestGetTrialDetailsSparse(t *testing.T) {
	t.Parallel()

	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"protocolSection":{}}`))
	})

	out, err := p.GetTrialDetails(context.Background(), clinicaltrials.DetailsArgs{NCTID: "NCT00000001"})
	require.NoError(t, err)

	assert.Contains(t, out, "Brief Title: No title")
	assert.Contains(t, out, "Sponsor: Unknown sponsor")
	assert.Contains(t, out, "Conditions: None specified")
	assert.Contains(t, out, "Detailed Description: No detailed description available")
}
