package analysis

import (
	"path"
	"strconv"

	"github.com/zeu5/lossbridge/core"
	"github.com/zeu5/lossbridge/util"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

type lossDataset struct {
	Updates []int
	// MeanLoss is the mean loss of the updates made in each episode
	MeanLoss []float64
}

func (l *lossDataset) Copy() *lossDataset {
	out := &lossDataset{
		Updates:  util.CopyIntSlice(l.Updates),
		MeanLoss: make([]float64, len(l.MeanLoss)),
	}
	copy(out.MeanLoss, l.MeanLoss)
	return out
}

// LossAnalyzer tracks the losses policies report for their updates
type LossAnalyzer struct {
	dataset *lossDataset
}

var _ core.Analyzer = &LossAnalyzer{}

func NewLossAnalyzer() *LossAnalyzer {
	a := &LossAnalyzer{}
	a.Reset()
	return a
}

func (l *LossAnalyzer) Reset() {
	l.dataset = &lossDataset{
		Updates:  make([]int, 0),
		MeanLoss: make([]float64, 0),
	}
}

func (l *LossAnalyzer) Analyze(_ *core.EpisodeContext, trace *core.Trace) {
	losses := make([]float64, 0)
	for _, step := range trace.Steps() {
		if loss, ok := step.Loss(); ok {
			losses = append(losses, loss)
		}
	}
	mean := 0.0
	if len(losses) > 0 {
		mean = stat.Mean(losses, nil)
	}
	l.dataset.Updates = append(l.dataset.Updates, len(losses))
	l.dataset.MeanLoss = append(l.dataset.MeanLoss, mean)
}

func (l *LossAnalyzer) DataSet() core.DataSet {
	return l.dataset.Copy()
}

type LossAnalyzerConstructor struct{}

var _ core.AnalyzerConstructor = &LossAnalyzerConstructor{}

func NewLossAnalyzerConstructor() *LossAnalyzerConstructor {
	return &LossAnalyzerConstructor{}
}

func (l *LossAnalyzerConstructor) NewAnalyzer(_ string, _ int) core.Analyzer {
	return NewLossAnalyzer()
}

type LossComparator struct {
	savePath string
	logger   *zap.Logger
}

var _ core.Comparator = &LossComparator{}

func NewLossComparator(savePath string, logger *zap.Logger) *LossComparator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LossComparator{
		savePath: path.Join(savePath, "loss.json"),
		logger:   logger,
	}
}

func (l *LossComparator) Compare(experimentNames []string, datasets []core.DataSet) {
	out := make(map[string]*lossDataset)
	for i, name := range experimentNames {
		if ds, ok := datasets[i].(*lossDataset); ok {
			out[name] = ds
		}
	}
	if err := util.SaveJson(l.savePath, out); err != nil {
		l.logger.Error("failed to save losses", zap.String("path", l.savePath), zap.Error(err))
	}
}

type LossComparatorConstructor struct {
	savePath string
	logger   *zap.Logger
}

var _ core.ComparatorConstructor = &LossComparatorConstructor{}

func NewLossComparatorConstructor(savePath string, logger *zap.Logger) *LossComparatorConstructor {
	return &LossComparatorConstructor{
		savePath: savePath,
		logger:   logger,
	}
}

func (l *LossComparatorConstructor) NewComparator(run int) core.Comparator {
	return NewLossComparator(path.Join(l.savePath, strconv.Itoa(run)), l.logger)
}
