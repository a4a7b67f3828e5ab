package analysis

import (
	"bytes"
	"fmt"
	"os"
	"path"

	"github.com/zeu5/lossbridge/core"
	"go.uber.org/zap"
)

// ErrorAnalyzer writes every failed episode, error and trace, to its own file
type ErrorAnalyzer struct {
	savePath string
	exp      string
	logger   *zap.Logger
}

var _ core.Analyzer = &ErrorAnalyzer{}

func NewErrorAnalyzer(savePath string, exp string, logger *zap.Logger) *ErrorAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorAnalyzer{
		savePath: path.Join(savePath, "errors"),
		exp:      exp,
		logger:   logger,
	}
}

func (a *ErrorAnalyzer) Analyze(ctx *core.EpisodeContext, trace *core.Trace) {
	err := ctx.Err()
	if err == nil {
		return
	}
	buf := new(bytes.Buffer)
	buf.WriteString(fmt.Sprintf("Error: %s\n", err))
	buf.WriteString(traceToString(trace))

	fileName := fmt.Sprintf("%d_error_%d.txt", ctx.Run, ctx.Episode)
	if a.exp != "" {
		fileName = fmt.Sprintf("%d_%s_error_%d.txt", ctx.Run, a.exp, ctx.Episode)
	}
	file := path.Join(a.savePath, fileName)
	if err := os.MkdirAll(a.savePath, 0755); err != nil {
		a.logger.Error("failed to create error directory", zap.String("path", a.savePath), zap.Error(err))
		return
	}
	if err := os.WriteFile(file, buf.Bytes(), 0644); err != nil {
		a.logger.Error("failed to save episode error", zap.String("path", file), zap.Error(err))
	}
}

func (a *ErrorAnalyzer) DataSet() core.DataSet {
	return nil
}

func (a *ErrorAnalyzer) Reset() {
	// do nothing
}

func traceToString(trace *core.Trace) string {
	buf := new(bytes.Buffer)
	for i, step := range trace.Steps() {
		actionHash := "<nil>"
		if step.Action != nil {
			actionHash = step.Action.Hash()
		}
		buf.WriteString(fmt.Sprintf("%d: %s --%s--> %s", i, step.State.Hash(), actionHash, step.NextState.Hash()))
		if loss, ok := step.Loss(); ok {
			buf.WriteString(fmt.Sprintf(" loss=%f", loss))
		}
		buf.WriteString("\n")
	}
	return buf.String()
}

type ErrorAnalyzerConstructor struct {
	SavePath string
	Logger   *zap.Logger
}

var _ core.AnalyzerConstructor = &ErrorAnalyzerConstructor{}

func NewErrorAnalyzerConstructor(savePath string, logger *zap.Logger) *ErrorAnalyzerConstructor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorAnalyzerConstructor{
		SavePath: savePath,
		Logger:   logger,
	}
}

func (e *ErrorAnalyzerConstructor) NewAnalyzer(exp string, _ int) core.Analyzer {
	return NewErrorAnalyzer(e.SavePath, exp, e.Logger.With(zap.String("experiment", exp)))
}
