// Package metrics 定义抽签引擎的业务指标。
package metrics

import "time"

// Collector 业务指标采集接口
type Collector interface {
	// ObserveDraw 记录一次抽签：耗时、分配数、参与者数
	ObserveDraw(duration time.Duration, allocations, participants int)
	// RecordTransition 记录一次生命周期跳转
	RecordTransition(from, to string)
	// RecordImport 记录一次批量导入的成功/失败行数
	RecordImport(success, failed int)
	// RecordPublish 记录发布 / 撤销发布
	RecordPublish(action string)
}

// Nop 丢弃所有指标
type Nop struct{}

var _ Collector = (*Nop)(nil)

// NewNop 创建空采集器
func NewNop() *Nop { return &Nop{} }

func (*Nop) ObserveDraw(time.Duration, int, int) {}
func (*Nop) RecordTransition(string, string)     {}
func (*Nop) RecordImport(int, int)               {}
func (*Nop) RecordPublish(string)                {}
