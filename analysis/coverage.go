package analysis

import (
	"path"
	"strconv"

	"github.com/zeu5/lossbridge/core"
	"github.com/zeu5/lossbridge/util"
	"go.uber.org/zap"
)

type coverageDataset struct {
	Timesteps    []int
	UniqueStates []int
}

func (c *coverageDataset) Copy() *coverageDataset {
	return &coverageDataset{
		Timesteps:    util.CopyIntSlice(c.Timesteps),
		UniqueStates: util.CopyIntSlice(c.UniqueStates),
	}
}

// CoverageAnalyzer counts the distinct painted states seen after each episode
type CoverageAnalyzer struct {
	painter core.Painter
	states  map[string]bool
	dataset *coverageDataset
}

var _ core.Analyzer = &CoverageAnalyzer{}

func NewCoverageAnalyzer(painter core.Painter) *CoverageAnalyzer {
	if painter == nil {
		painter = core.HashPainter()
	}
	return &CoverageAnalyzer{
		painter: painter,
		states:  make(map[string]bool),
		dataset: &coverageDataset{
			Timesteps:    make([]int, 0),
			UniqueStates: make([]int, 0),
		},
	}
}

func (c *CoverageAnalyzer) Reset() {
	c.states = make(map[string]bool)
	c.dataset = &coverageDataset{
		Timesteps:    make([]int, 0),
		UniqueStates: make([]int, 0),
	}
}

func (c *CoverageAnalyzer) Analyze(_ *core.EpisodeContext, trace *core.Trace) {
	for _, step := range trace.Steps() {
		c.states[c.painter(step.State)] = true
		c.states[c.painter(step.NextState)] = true
	}
	lastTimeStep := 0
	if len(c.dataset.Timesteps) > 0 {
		lastTimeStep = c.dataset.Timesteps[len(c.dataset.Timesteps)-1]
	}
	c.dataset.Timesteps = append(c.dataset.Timesteps, lastTimeStep+trace.Len())
	c.dataset.UniqueStates = append(c.dataset.UniqueStates, len(c.states))
}

func (c *CoverageAnalyzer) DataSet() core.DataSet {
	return c.dataset.Copy()
}

type CoverageAnalyzerConstructor struct {
	painter core.Painter
}

var _ core.AnalyzerConstructor = &CoverageAnalyzerConstructor{}

func NewCoverageAnalyzerConstructor(painter core.Painter) *CoverageAnalyzerConstructor {
	return &CoverageAnalyzerConstructor{
		painter: painter,
	}
}

func (c *CoverageAnalyzerConstructor) NewAnalyzer(_ string, _ int) core.Analyzer {
	return NewCoverageAnalyzer(c.painter)
}

// CoverageComparator saves the coverage of every experiment as json
type CoverageComparator struct {
	savePath string
	logger   *zap.Logger
}

var _ core.Comparator = &CoverageComparator{}

func NewCoverageComparator(savePath string, logger *zap.Logger) *CoverageComparator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoverageComparator{
		savePath: path.Join(savePath, "coverage.json"),
		logger:   logger,
	}
}

func (c *CoverageComparator) Compare(experimentNames []string, datasets []core.DataSet) {
	out := make(map[string]*coverageDataset)
	for i, name := range experimentNames {
		ds, ok := datasets[i].(*coverageDataset)
		if !ok {
			continue
		}
		out[name] = ds
	}

	if err := util.SaveJson(c.savePath, out); err != nil {
		c.logger.Error("failed to save coverage", zap.String("path", c.savePath), zap.Error(err))
	}
}

type CoverageComparatorConstructor struct {
	savePath string
	logger   *zap.Logger
}

var _ core.ComparatorConstructor = &CoverageComparatorConstructor{}

func NewCoverageComparatorConstructor(savePath string, logger *zap.Logger) *CoverageComparatorConstructor {
	return &CoverageComparatorConstructor{
		savePath: savePath,
		logger:   logger,
	}
}

func (c *CoverageComparatorConstructor) NewComparator(run int) core.Comparator {
	return NewCoverageComparator(path.Join(c.savePath, strconv.Itoa(run)), c.logger)
}
