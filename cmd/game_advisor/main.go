package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/config"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/engine"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/logger"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/model"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/progress"
)

func main() {
	confPath := flag.String("conf", "configs/config.yaml", "配置文件路径")
	imagePath := flag.String("image", "", "游戏截图路径")
	prompt := flag.String("prompt", "", "想要咨询的问题")
	gameName := flag.String("game", "", "游戏名称，可选")
	quiet := flag.Bool("quiet", false, "不输出模型的实时文本")
	flag.Parse()

	if *imagePath == "" || strings.TrimSpace(*prompt) == "" {
		flag.Usage()
		os.Exit(2)
	}

	// 1. 加载配置
	cfg, err := config.LoadConfig(*confPath)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}

	// 2. 初始化日志
	if err = logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}

	image, err := os.ReadFile(*imagePath)
	if err != nil {
		logger.Log.Fatalf("无法读取截图: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. 初始化引擎
	eng, err := engine.NewFromConfig(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("引擎初始化失败: %v", err)
	}

	// 4. 进度在单独的 goroutine 中消费，慢速终端不会拖住分析流程
	stream := progress.NewStream(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range stream.C() {
			printProgress(snap)
		}
	}()

	opts := []engine.CallOption{engine.WithProgress(stream.Sink())}
	if !*quiet {
		opts = append(opts, engine.WithStream(func(fragment string) {
			fmt.Fprint(os.Stderr, fragment)
		}))
	}

	req := model.NewAnalysisRequest(image, "", *prompt, *gameName)
	rec, err := eng.Analyze(ctx, req, opts...)
	stream.Close()
	<-done
	if n := stream.Dropped(); n > 0 {
		logger.Log.Debugf("丢弃了 %d 个进度快照", n)
	}
	if err != nil {
		logger.Log.Fatalf("分析失败: %v", err)
	}

	// 5. 输出结果
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		logger.Log.Fatalf("输出结果失败: %v", err)
	}
}

func printProgress(snap progress.Snapshot) {
	parts := make([]string, 0, len(snap))
	for _, j := range snap {
		parts = append(parts, fmt.Sprintf("%s=%s(%d%%)", j.Name, j.Status, j.Percent))
	}
	fmt.Fprintf(os.Stderr, "\n[progress] %s\n", strings.Join(parts, " "))
}
