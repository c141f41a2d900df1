package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thejenniferfang/disaster-response/internal/testutil"
	"github.com/thejenniferfang/disaster-response/internal/types"
)

type fakeIngester struct {
	event *types.Event
	err   error
}

func (f *fakeIngester) Ingest(context.Context, types.Signal) (*types.Event, error) {
	return f.event, f.err
}

type fakeMatcher struct {
	matches []types.Match
	err     error
}

func (f *fakeMatcher) Match(context.Context, types.Event) ([]types.Match, error) {
	return f.matches, f.err
}

type fakeDispatcher struct {
	calls int
	err   error
}

func (f *fakeDispatcher) Dispatch(context.Context, types.Event, []types.Match) error {
	f.calls++
	return f.err
}

func testEventAndMatches() (*types.Event, []types.Match) {
	e := testutil.MakeEvent("ev-1", types.DisasterFlood, "Sindh,PK", types.SeverityHigh, []string{"a", "b", "c"}, 10*time.Minute)
	return &e, []types.Match{{EventID: "ev-1", NGOID: "ngo-1", RelevanceScore: 0.9}}
}

func TestProcessSignalStoredOnly(t *testing.T) {
	d := &fakeDispatcher{}
	p := New(&fakeIngester{}, &fakeMatcher{}, d, zap.NewNop())

	result, err := p.ProcessSignal(context.Background(), types.Signal{ID: "sig-1"})
	require.NoError(t, err)
	assert.Nil(t, result.Event)
	assert.Empty(t, result.Matches)
	assert.Zero(t, d.calls, "no event means no matching or dispatch")
}

func TestProcessSignalFullFlow(t *testing.T) {
	e, matches := testEventAndMatches()
	d := &fakeDispatcher{}
	p := New(&fakeIngester{event: e}, &fakeMatcher{matches: matches}, d, zap.NewNop())

	result, err := p.ProcessSignal(context.Background(), types.Signal{ID: "sig-1"})
	require.NoError(t, err)
	assert.Equal(t, e, result.Event)
	assert.Equal(t, matches, result.Matches)
	assert.Equal(t, 1, d.calls)
}

func TestProcessSignalNoMatchesSkipsDispatch(t *testing.T) {
	e, _ := testEventAndMatches()
	d := &fakeDispatcher{}
	p := New(&fakeIngester{event: e}, &fakeMatcher{}, d, zap.NewNop())

	result, err := p.ProcessSignal(context.Background(), types.Signal{ID: "sig-1"})
	require.NoError(t, err)
	assert.Equal(t, e, result.Event)
	assert.Zero(t, d.calls)
}

func TestProcessSignalNilDispatcher(t *testing.T) {
	e, matches := testEventAndMatches()
	p := New(&fakeIngester{event: e}, &fakeMatcher{matches: matches}, nil, zap.NewNop())

	result, err := p.ProcessSignal(context.Background(), types.Signal{ID: "sig-1"})
	require.NoError(t, err)
	assert.Equal(t, matches, result.Matches)
}

func TestProcessSignalIngestError(t *testing.T) {
	p := New(&fakeIngester{err: errors.New("store down")}, &fakeMatcher{}, &fakeDispatcher{}, zap.NewNop())

	_, err := p.ProcessSignal(context.Background(), types.Signal{ID: "sig-1"})
	require.Error(t, err)
}

func TestProcessSignalMatchErrorKeepsEvent(t *testing.T) {
	e, _ := testEventAndMatches()
	p := New(&fakeIngester{event: e}, &fakeMatcher{err: errors.New("registry down")}, &fakeDispatcher{}, zap.NewNop())

	result, err := p.ProcessSignal(context.Background(), types.Signal{ID: "sig-1"})
	require.Error(t, err)
	assert.Equal(t, e, result.Event, "the correlation result survives a matching failure")
}

func TestProcessSignalDispatchErrorKeepsResults(t *testing.T) {
	e, matches := testEventAndMatches()
	d := &fakeDispatcher{err: errors.New("all channels down")}
	p := New(&fakeIngester{event: e}, &fakeMatcher{matches: matches}, d, zap.NewNop())

	result, err := p.ProcessSignal(context.Background(), types.Signal{ID: "sig-1"})
	require.Error(t, err)
	assert.Equal(t, e, result.Event)
	assert.Equal(t, matches, result.Matches)
}
