package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/lossbridge/core"
	"github.com/zeu5/lossbridge/util"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type posState int

func (p posState) Hash() string           { return strconv.Itoa(int(p)) }
func (p posState) Actions() []core.Action { return nil }

type stepAction struct{}

func (stepAction) Hash() string { return "step" }

func traceOf(positions []int, losses map[int]float64) *core.Trace {
	tr := core.NewTrace()
	for i := 0; i+1 < len(positions); i++ {
		misc := make(map[string]interface{})
		if l, ok := losses[i]; ok {
			misc["loss"] = l
		}
		tr.AddStep(&core.Step{
			State:     posState(positions[i]),
			Action:    stepAction{},
			NextState: posState(positions[i+1]),
			Misc:      misc,
		})
	}
	return tr
}

func TestCoverageAnalyzer(t *testing.T) {
	a := NewCoverageAnalyzer(nil)
	eCtx := core.NewEpisodeContext(context.Background())

	a.Analyze(eCtx, traceOf([]int{0, 1, 2}, nil))
	a.Analyze(eCtx, traceOf([]int{0, 1, 3, 4}, nil))

	ds := a.DataSet().(*coverageDataset)
	assert.Equal(t, []int{2, 5}, ds.Timesteps)
	assert.Equal(t, []int{3, 5}, ds.UniqueStates)

	a.Reset()
	assert.Empty(t, a.DataSet().(*coverageDataset).Timesteps)
}

func TestCoverageComparatorSavesJson(t *testing.T) {
	dir := t.TempDir()
	a := NewCoverageAnalyzer(nil)
	a.Analyze(core.NewEpisodeContext(context.Background()), traceOf([]int{0, 1}, nil))

	NewCoverageComparatorConstructor(dir, zaptest.NewLogger(t)).NewComparator(0).Compare(
		[]string{"TD-static", "failed"},
		[]core.DataSet{a.DataSet(), nil},
	)

	out := make(map[string]*coverageDataset)
	require.NoError(t, util.ReadJson(filepath.Join(dir, "0", "coverage.json"), &out))
	require.Contains(t, out, "TD-static")
	assert.NotContains(t, out, "failed")
	assert.Equal(t, []int{2}, out["TD-static"].UniqueStates)
}

func TestLossAnalyzer(t *testing.T) {
	a := NewLossAnalyzerConstructor().NewAnalyzer("TD-static", 0)
	eCtx := core.NewEpisodeContext(context.Background())

	a.Analyze(eCtx, traceOf([]int{0, 1, 2, 3}, map[int]float64{0: 1, 2: 3}))
	a.Analyze(eCtx, traceOf([]int{0, 1}, nil))

	ds := a.DataSet().(*lossDataset)
	assert.Equal(t, []int{2, 0}, ds.Updates)
	assert.Equal(t, []float64{2, 0}, ds.MeanLoss)

	dir := t.TempDir()
	NewLossComparatorConstructor(dir, zaptest.NewLogger(t)).NewComparator(1).Compare([]string{"TD-static"}, []core.DataSet{ds})
	_, err := os.Stat(filepath.Join(dir, "1", "loss.json"))
	assert.NoError(t, err)
}

func TestErrorAnalyzer(t *testing.T) {
	dir := t.TempDir()
	a := NewErrorAnalyzerConstructor(dir, zaptest.NewLogger(t)).NewAnalyzer("TD-static", 0)

	ok := core.NewEpisodeContext(context.Background())
	ok.Finish()
	a.Analyze(ok, traceOf([]int{0, 1}, nil))

	failed := core.NewEpisodeContext(context.Background())
	failed.Run = 2
	failed.Episode = 5
	failed.Error(errors.New("getting loss: loss already consumed"))
	a.Analyze(failed, traceOf([]int{0, 1, 2}, map[int]float64{1: 0.25}))

	entries, err := os.ReadDir(filepath.Join(dir, "errors"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2_TD-static_error_5.txt", entries[0].Name())

	bs, err := os.ReadFile(filepath.Join(dir, "errors", entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(bs), "loss already consumed")
	assert.Contains(t, string(bs), "1: 1 --step--> 2 loss=0.250000")
	assert.Nil(t, a.DataSet())
}

func TestSaveFailuresAreLogged(t *testing.T) {
	// a regular file where the run directory should go
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocked, nil, 0644))

	observed, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(observed)

	NewCoverageComparatorConstructor(blocked, logger).NewComparator(0).Compare(nil, nil)
	NewLossComparatorConstructor(blocked, logger).NewComparator(0).Compare(nil, nil)

	failed := core.NewEpisodeContext(context.Background())
	failed.Error(errors.New("update at step 1: loss not set"))
	NewErrorAnalyzerConstructor(blocked, logger).NewAnalyzer("TD-static", 0).Analyze(failed, traceOf([]int{0, 1}, nil))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "failed to save coverage", entries[0].Message)
	assert.Equal(t, "failed to save losses", entries[1].Message)
	assert.Equal(t, "failed to create error directory", entries[2].Message)
	assert.Equal(t, "TD-static", entries[2].ContextMap()["experiment"])
}
