// drawsim 离线运行抽签分配器，用于种子测试与规则验证，不连接数据库。
//
//	drawsim -fixture testdata/sample.yaml -seed 42
//	drawsim -fixture testdata/sample.yaml -json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"

	"my-page/backend/config"
	"my-page/backend/internal/draft"
	applogger "my-page/backend/pkg/logger"
)

func main() {
	fixturePath := flag.String("fixture", "", "YAML fixture 路径（必填）")
	seedFlag := flag.String("seed", "", "随机种子，留空时自动生成")
	asJSON := flag.Bool("json", false, "以 JSON 输出完整结果")
	logLevel := flag.String("log-level", "warn", "日志级别")
	flag.Parse()

	logger, err := applogger.NewLogger(&config.LogConfig{Level: *logLevel, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *fixturePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	seed, err := parseSeed(*seedFlag)
	if err != nil {
		logger.Fatal("种子无效", zap.String("seed", *seedFlag), zap.Error(err))
	}

	result, err := simulate(*fixturePath, seed, logger)
	if err != nil {
		logger.Fatal("抽签模拟失败", zap.Error(err))
	}

	if err := writeResult(os.Stdout, result, *asJSON); err != nil {
		logger.Fatal("输出结果失败", zap.Error(err))
	}
}

func parseSeed(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// simulate 读取 fixture 并运行一次抽签
func simulate(path string, seed *int64, logger *zap.Logger) (*draft.Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开 fixture 失败: %w", err)
	}
	defer file.Close()

	f, err := loadFixture(file)
	if err != nil {
		return nil, err
	}

	in, err := f.input(seed)
	if err != nil {
		return nil, err
	}

	opts := f.options()
	logger.Debug("fixture 已加载",
		zap.String("path", path),
		zap.Int("periods", len(in.Periods)),
		zap.Int("apartments", len(in.Apartments)),
		zap.Int("wishes", len(in.Wishes)),
		zap.Int("max_allocations_per_user", opts.MaxAllocationsPerUser),
		zap.Int("max_priority", opts.MaxPriority),
	)

	return draft.New(opts).Run(in)
}

// writeResult JSON 模式输出完整结果，否则逐行输出审计日志
func writeResult(w io.Writer, result *draft.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	for _, line := range result.AuditLog {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
