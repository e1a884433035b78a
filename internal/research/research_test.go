package research

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"prism-backend/internal/llm"
	"prism-backend/internal/prism"
	"prism-backend/internal/prompts"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const phase1JSON = `{"positiveHacks":[{"text":"hack","sourceUrl":"https://a.example"}],"negativePains":[{"text":"pain"}],"marketRedefinition":"redef"}`

type fakeProvider struct {
	mu      sync.Mutex
	prompts []string
	json    func(prompt string) (string, error)
	read    func(prompt string) (llm.URLReadResponse, error)
}

func (f *fakeProvider) GenerateJSON(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()
	if f.json == nil {
		return phase1JSON, nil
	}
	return f.json(req.Prompt)
}

func (f *fakeProvider) GenerateGrounded(_ context.Context, req llm.Request) (llm.GroundedResponse, error) {
	return llm.GroundedResponse{
		Text:      "voices",
		Chunks:    []prism.GroundingSource{{Title: "a", URL: "https://a.example"}},
		Citations: []llm.Citation{{Text: "span", ChunkIndices: []int{0}}},
	}, nil
}

func (f *fakeProvider) ReadURLs(_ context.Context, req llm.Request) (llm.URLReadResponse, error) {
	if f.read == nil {
		return llm.URLReadResponse{Text: phase1JSON, RetrievedURLs: []string{"https://read.example"}}, nil
	}
	return f.read(req.Prompt)
}

type fakeAgent struct {
	deltas []llm.AgentDelta
	err    error
	prompt string
}

func (f *fakeAgent) Start(_ context.Context, prompt string) (<-chan llm.AgentDelta, error) {
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan llm.AgentDelta, len(f.deltas))
	for _, d := range f.deltas {
		ch <- d
	}
	close(ch)
	return ch, nil
}

func request(depth prism.ResearchDepth) Request {
	return Request{
		Input: prism.AnalysisInput{
			ProductName: "P", Category: "C", Challenges: "X",
			Model: prism.ModelFast, ResearchDepth: depth, ManualResearchData: "pasted notes",
		},
		Prompts: prompts.NewBuilder(nil),
		Span:    Span{From: 5, To: 30},
	}
}

func drain(updates chan Update) []Update {
	close(updates)
	var out []Update
	for u := range updates {
		out = append(out, u)
	}
	return out
}

func progressPercents(updates []Update) []int {
	var out []int
	for _, u := range updates {
		if u.DebugLabel == "" {
			out = append(out, u.Percent)
		}
	}
	return out
}

func TestProgressEstimator(t *testing.T) {
	e := ProgressEstimator{From: 5, To: 70, Expected: 100 * time.Second}
	assert.Equal(t, 5, e.Percent(0))
	assert.Equal(t, 5+int(64*0.5), e.Percent(25*time.Second))
	assert.Equal(t, 69, e.Percent(100*time.Second))
	assert.Equal(t, 69, e.Percent(time.Hour))

	prev := e.Percent(0)
	for s := 1; s <= 120; s++ {
		p := e.Percent(time.Duration(s) * time.Second)
		assert.GreaterOrEqual(t, p, prev)
		assert.Less(t, p, e.To)
		prev = p
	}
	assert.Equal(t, 10, ProgressEstimator{From: 10, To: 11, Expected: time.Second}.Percent(time.Hour))
}

func TestNewRejectsUnknownDepth(t *testing.T) {
	_, err := New("bogus", Deps{})
	require.Error(t, err)
	assert.True(t, prism.IsValidationError(err))
}

func TestStandardStrategy(t *testing.T) {
	p := &fakeProvider{}
	s, err := New(prism.DepthStandard, Deps{LLM: llm.NewClient(p, llm.Options{})})
	require.NoError(t, err)
	assert.Equal(t, prism.DepthStandard, s.Depth())

	updates := make(chan Update, 16)
	out, err := s.Run(context.Background(), request(prism.DepthStandard), updates)
	require.NoError(t, err)
	got := drain(updates)

	assert.Equal(t, "redef", out.Phase1.MarketRedefinition)
	require.Len(t, out.KnownSources, 1)
	assert.Equal(t, []int{5, 30}, progressPercents(got))
	require.Len(t, p.prompts, 1)
	assert.Contains(t, p.prompts[0], "https://a.example")
	assert.Contains(t, p.prompts[0], "【調査1】")
}

func TestDeepStrategyUsesReadAndRetrievedURLs(t *testing.T) {
	p := &fakeProvider{}
	s, err := New(prism.DepthDeep, Deps{LLM: llm.NewClient(p, llm.Options{})})
	require.NoError(t, err)

	out, err := s.Run(context.Background(), request(prism.DepthDeep), nil)
	require.NoError(t, err)
	assert.Equal(t, "hack", out.Phase1.PositiveHacks[0].Text)
	urls := make([]string, 0, len(out.KnownSources))
	for _, src := range out.KnownSources {
		urls = append(urls, src.URL)
	}
	assert.ElementsMatch(t, []string{"https://a.example", "https://read.example"}, urls)
	assert.Empty(t, p.prompts, "parsed read output needs no JSON call")
}

func TestManualStrategyHasNoKnownSources(t *testing.T) {
	p := &fakeProvider{}
	s, err := New(prism.DepthManual, Deps{LLM: llm.NewClient(p, llm.Options{})})
	require.NoError(t, err)

	out, err := s.Run(context.Background(), request(prism.DepthManual), nil)
	require.NoError(t, err)
	assert.Empty(t, out.KnownSources)
	require.Len(t, p.prompts, 1)
	assert.Contains(t, p.prompts[0], "pasted notes")
}

func TestAgentStrategyRelaysThoughts(t *testing.T) {
	p := &fakeProvider{}
	ag := &fakeAgent{deltas: []llm.AgentDelta{
		{Thought: "**口コミを検索中**\n詳細"},
		{Text: "レポート本文"},
	}}
	s, err := New(prism.DepthAgent, Deps{LLM: llm.NewClient(p, llm.Options{}), Agent: ag, Tick: time.Hour})
	require.NoError(t, err)

	req := request(prism.DepthAgent)
	req.Span = Span{From: 5, To: 70}
	updates := make(chan Update, 16)
	out, err := s.Run(context.Background(), req, updates)
	require.NoError(t, err)
	got := drain(updates)

	assert.Empty(t, out.KnownSources)
	assert.Contains(t, ag.prompt, "P")
	require.Len(t, p.prompts, 1)
	assert.Contains(t, p.prompts[0], "レポート本文")

	var messages []string
	for _, u := range got {
		messages = append(messages, u.Message)
	}
	assert.Contains(t, messages, "Deep Research: 口コミを検索中")
	percents := progressPercents(got)
	assert.Equal(t, 70, percents[len(percents)-1])
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
}

func TestAgentStrategyFailures(t *testing.T) {
	cases := map[string]*fakeAgent{
		"start fails":  {err: errors.New("no access")},
		"empty report": {deltas: []llm.AgentDelta{{Thought: "thinking"}}},
		"job failed":   {deltas: []llm.AgentDelta{{Err: errors.New("boom")}}},
	}
	for name, ag := range cases {
		ag := ag
		t.Run(name, func(t *testing.T) {
			p := &fakeProvider{}
			s, err := New(prism.DepthAgent, Deps{LLM: llm.NewClient(p, llm.Options{}), Agent: ag, Tick: time.Hour})
			require.NoError(t, err)
			_, err = s.Run(context.Background(), request(prism.DepthAgent), nil)
			require.Error(t, err)
			assert.True(t, llm.IsResearchAgentError(err))
			assert.Empty(t, p.prompts)
		})
	}
}

func TestAgentStrategyTicksEstimate(t *testing.T) {
	deltas := make(chan llm.AgentDelta)
	ag := agentFunc(func(ctx context.Context, _ string) (<-chan llm.AgentDelta, error) { return deltas, nil })

	var mu sync.Mutex
	clock := time.Unix(0, 0)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	s, err := New(prism.DepthAgent, Deps{
		LLM:           llm.NewClient(&fakeProvider{}, llm.Options{}),
		Agent:         ag,
		AgentExpected: 100 * time.Second,
		Tick:          time.Millisecond,
		Now:           now,
	})
	require.NoError(t, err)

	updates := make(chan Update, 64)
	done := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background(), Request{
			Input:   prism.AnalysisInput{ProductName: "P", Category: "C", Challenges: "X"},
			Prompts: prompts.NewBuilder(nil),
			Span:    Span{From: 5, To: 70},
		}, updates)
		done <- err
	}()

	first := <-updates
	assert.Equal(t, 5, first.Percent)

	mu.Lock()
	clock = clock.Add(25 * time.Second)
	mu.Unlock()

	var ticked Update
	for ticked = range updates {
		if ticked.Percent > 5 {
			break
		}
	}
	assert.Equal(t, 37, ticked.Percent)
	assert.True(t, strings.HasPrefix(ticked.Message, "Phase 1"))

	deltas <- llm.AgentDelta{Text: "report"}
	close(deltas)
	require.NoError(t, <-done)
}

type agentFunc func(ctx context.Context, prompt string) (<-chan llm.AgentDelta, error)

func (f agentFunc) Start(ctx context.Context, prompt string) (<-chan llm.AgentDelta, error) {
	return f(ctx, prompt)
}

func TestHeadline(t *testing.T) {
	assert.Equal(t, "見出し", headline("\n\n**見出し**\n本文"))
	long := strings.Repeat("あ", 100)
	assert.Equal(t, strings.Repeat("あ", maxHeadlineRunes)+"…", headline(long))
}
