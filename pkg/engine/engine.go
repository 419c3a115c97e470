package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/extract"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/llm"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/logger"
	dm "github.com/scornflake/mentor-game-analysis-sub000/pkg/model"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/progress"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/research"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/tools"
)

// Engine 核心分析引擎。只持有不可变的依赖，可被并发调用。
type Engine struct {
	client       llm.Client
	strategy     Strategy
	research     *research.Pipeline
	tools        tools.Deps
	maxToolTurns int
	now          func() time.Time
}

// Options 引擎构造参数
type Options struct {
	Features Features
	// Research UpfrontResearch 策略必填
	Research *research.Pipeline
	// Tools AutonomousTools 策略必填 Searcher
	Tools        tools.Deps
	MaxToolTurns int
	Clock        func() time.Time
}

// DefaultMaxToolTurns 自主工具模式下允许调用工具的最大轮数
const DefaultMaxToolTurns = 5

// New 创建引擎实例，策略在构造时确定
func New(client llm.Client, opts Options) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("engine: llm client is required")
	}
	strategy := SelectStrategy(opts.Features)
	switch strategy {
	case UpfrontResearch:
		if opts.Research == nil {
			return nil, fmt.Errorf("engine: %s requires a research pipeline", strategy)
		}
	case AutonomousTools:
		if opts.Tools.Searcher == nil {
			return nil, fmt.Errorf("engine: %s requires a searcher", strategy)
		}
	}
	if opts.MaxToolTurns <= 0 {
		opts.MaxToolTurns = DefaultMaxToolTurns
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Engine{
		client:       client,
		strategy:     strategy,
		research:     opts.Research,
		tools:        opts.Tools,
		maxToolTurns: opts.MaxToolTurns,
		now:          opts.Clock,
	}, nil
}

// Strategy 构造时选定的策略
func (e *Engine) Strategy() Strategy { return e.strategy }

// CallOption Analyze 的可选参数
type CallOption func(*callOptions)

type callOptions struct {
	progress progress.Sink
	stream   func(fragment string)
}

// WithProgress 每次作业状态变化后接收一份快照
func WithProgress(sink progress.Sink) CallOption {
	return func(o *callOptions) { o.progress = sink }
}

// WithStream 按到达顺序接收模型输出的文本片段
func WithStream(sink func(fragment string)) CallOption {
	return func(o *callOptions) { o.stream = sink }
}

// analysisRun 单次调用的全部状态
type analysisRun struct {
	id      string
	req     *dm.AnalysisRequest
	tracker *progress.Tracker
	opts    callOptions
	results []dm.ResearchResult
	log     *logrus.Entry
}

func (r *analysisRun) emit() {
	r.tracker.Snapshot(r.opts.progress)
}

func (r *analysisRun) forward(fragment string) {
	if r.opts.stream != nil {
		r.opts.stream(fragment)
	}
}

func (r *analysisRun) setLLM(status progress.Status, percent int) {
	r.tracker.UpsertJob(progress.TagLLMAnalysis, status, percent)
	r.emit()
}

// Analyze 分析一张游戏截图并返回建议。
// 校验失败时不会发起任何网络调用；无论成功与否，llm-analysis 作业最终都会标记为完成。
func (e *Engine) Analyze(ctx context.Context, req *dm.AnalysisRequest, opts ...CallOption) (*dm.Recommendation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	run := &analysisRun{
		id:      uuid.NewString(),
		req:     req,
		tracker: progress.NewTracker(),
	}
	for _, opt := range opts {
		opt(&run.opts)
	}
	run.log = logger.Log.WithFields(logrus.Fields{
		"run_id":   run.id,
		"strategy": e.strategy.String(),
		"provider": e.client.Name(),
	})

	if e.strategy == UpfrontResearch {
		run.tracker.UpsertJob(progress.TagWebSearch, progress.Pending, 0)
	}
	run.tracker.UpsertJob(progress.TagLLMAnalysis, progress.Pending, 0)
	run.emit()
	defer run.setLLM(progress.Completed, 100)

	start := e.now()
	run.log.WithFields(logrus.Fields{
		"game":       req.GameName(),
		"image_size": req.ImageSize(),
		"mime":       req.MimeType(),
	}).Info("开始分析")

	rec, err := e.dispatch(ctx, run)
	if err != nil {
		run.log.Errorf("分析失败: %v", err)
		return nil, err
	}

	rec.ProviderUsed = e.client.Name()
	rec.GeneratedAt = e.now()
	if len(run.results) > 0 {
		rec.SearchResults = run.results
	}
	run.log.WithFields(logrus.Fields{
		"recommendations": len(rec.Recommendations),
		"sources":         len(rec.SearchResults),
		"elapsed":         e.now().Sub(start).String(),
	}).Info("分析完成")
	return rec, nil
}

func (e *Engine) dispatch(ctx context.Context, run *analysisRun) (*dm.Recommendation, error) {
	switch e.strategy {
	case Direct:
		return e.runDirect(ctx, run)
	case AutonomousTools:
		return e.runAutonomous(ctx, run)
	case UpfrontResearch:
		return e.runUpfront(ctx, run)
	case PassthroughTools:
		return e.runStreaming(ctx, run, buildMessages(e.strategy, run.req, ""), model.WithToolChoice(schema.ToolChoiceAllowed))
	default:
		return e.runStreaming(ctx, run, buildMessages(e.strategy, run.req, ""))
	}
}

func (e *Engine) runDirect(ctx context.Context, run *analysisRun) (*dm.Recommendation, error) {
	run.setLLM(progress.InProgress, 0)
	msg, err := e.client.Generate(ctx, buildMessages(e.strategy, run.req, ""), llm.WithJSONResponse())
	if err != nil {
		return nil, providerError(ctx, err)
	}
	return extract.Decode(msg.Content)
}

func (e *Engine) runStreaming(ctx context.Context, run *analysisRun, msgs []*schema.Message, opts ...model.Option) (*dm.Recommendation, error) {
	run.setLLM(progress.InProgress, 0)
	msg, err := e.streamTurn(ctx, run, msgs, opts...)
	if err != nil {
		return nil, err
	}
	return extract.Parse(msg.Content)
}

func (e *Engine) runUpfront(ctx context.Context, run *analysisRun) (*dm.Recommendation, error) {
	// 子流程的每个快照都实时合并到本次调用的 Tracker
	live := func(snap progress.Snapshot) {
		run.tracker.MergeJobs(snap)
		run.emit()
	}
	results, child, err := e.research.Run(ctx, run.req.GameName(), run.req.Prompt(), live)
	run.tracker.Merge(child)
	if err != nil {
		return nil, providerError(ctx, err)
	}
	run.results = results
	run.log.Infof("调研完成，注入 %d 条资料", len(results))

	msgs := buildMessages(e.strategy, run.req, research.FormatContext(results))
	return e.runStreaming(ctx, run, msgs, model.WithToolChoice(schema.ToolChoiceForbidden))
}

func (e *Engine) runAutonomous(ctx context.Context, run *analysisRun) (*dm.Recommendation, error) {
	sess, err := tools.NewSession(e.tools, run.req.GameName(), run.tracker, run.opts.progress, run.log)
	if err != nil {
		return nil, err
	}
	infos, err := sess.Infos(ctx)
	if err != nil {
		return nil, err
	}

	run.setLLM(progress.InProgress, 0)
	msgs := buildMessages(e.strategy, run.req, "")
	var final string
	for turn := 0; ; turn++ {
		choice := toolChoiceFor(turn, e.maxToolTurns)
		msg, err := e.streamTurn(ctx, run, msgs, model.WithTools(infos), model.WithToolChoice(choice))
		if err != nil {
			return nil, err
		}
		if len(msg.ToolCalls) == 0 || choice == schema.ToolChoiceForbidden {
			final = msg.Content
			break
		}

		run.log.WithField("turn", turn).Infof("模型请求 %d 个工具调用", len(msg.ToolCalls))
		msgs = append(msgs, msg)
		for _, call := range msg.ToolCalls {
			out := sess.Execute(ctx, call)
			msgs = append(msgs, schema.ToolMessage(out, call.ID))
		}
		if err := ctx.Err(); err != nil {
			return nil, providerError(ctx, err)
		}
	}

	run.results = sess.Results()
	return extract.Parse(final)
}

// streamTurn 流式调用一轮，片段实时转发并最终拼接为一条消息（含工具调用）
func (e *Engine) streamTurn(ctx context.Context, run *analysisRun, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	sr, err := e.client.Stream(ctx, msgs, opts...)
	if err != nil {
		return nil, providerError(ctx, err)
	}
	defer sr.Close()

	var chunks []*schema.Message
	for {
		if err := ctx.Err(); err != nil {
			return nil, providerError(ctx, err)
		}
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, providerError(ctx, err)
		}
		if chunk == nil {
			continue
		}
		if chunk.Content != "" {
			run.forward(chunk.Content)
		}
		chunks = append(chunks, chunk)
	}

	if len(chunks) == 0 {
		return schema.AssistantMessage("", nil), nil
	}
	msg, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: concat stream: %w", dm.ErrProvider, err)
	}
	return msg, nil
}

// providerError 统一包装为 ErrProvider，已取消时以 ctx.Err() 为准
func providerError(ctx context.Context, err error) error {
	if errors.Is(err, dm.ErrProvider) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %w: %v", dm.ErrProvider, ctxErr, err)
	}
	return fmt.Errorf("%w: %w", dm.ErrProvider, err)
}
