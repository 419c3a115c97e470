package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/config"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/llm"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/logger"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/markdown"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/reader"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/research"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/search/factory"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/tools"
)

// NewFromConfig 按配置装配 LLM 客户端、搜索、调研与工具依赖
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Engine, error) {
	client, err := llm.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}

	features := FeaturesFromConfig(cfg.Strategy)
	opts := Options{
		Features:     features,
		MaxToolTurns: cfg.Strategy.MaxToolTurns,
	}

	if cfg.NeedsSearch() {
		searcher, err := factory.NewSearcher(cfg)
		if err != nil {
			return nil, fmt.Errorf("搜索客户端初始化失败: %w", err)
		}
		rd := reader.NewReadability(time.Duration(cfg.Research.Timeout) * time.Second)
		conv := markdown.NewHTMLConverter("")

		switch SelectStrategy(features) {
		case UpfrontResearch:
			pipeline, err := research.NewPipeline(searcher, rd, conv, research.ParseMode(cfg.Research.Mode), cfg.Research.MaxResults)
			if err != nil {
				return nil, err
			}
			opts.Research = pipeline
		case AutonomousTools:
			opts.Tools = tools.Deps{
				Searcher:   searcher,
				Reader:     rd,
				Converter:  conv,
				MaxResults: cfg.Research.MaxResults,
			}
		}
	}

	e, err := New(client, opts)
	if err != nil {
		return nil, err
	}
	logger.Log.Infof("引擎初始化完成: provider=%s strategy=%s", client.Name(), e.Strategy())
	return e, nil
}
