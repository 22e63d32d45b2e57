// Package retry 提供带退避的重试执行器
package retry

import (
	"context"
	"time"
)

// Class 错误分类，决定退避策略
type Class int

const (
	// Fatal 不可重试，立即返回
	Fatal Class = iota
	// Transient 临时故障，线性退避后重试
	Transient
	// RateLimited 被限流，指数退避后重试
	RateLimited
)

// Classifier 将错误映射为重试分类
type Classifier func(error) Class

// SleepFunc 等待函数，测试时可替换
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options 重试选项
type Options struct {
	// MaxRetries 首次尝试之外的最大重试次数
	MaxRetries int
	// RateLimitBackoff 限流退避基数，每次翻倍
	RateLimitBackoff time.Duration
	// TransientBackoff 临时故障退避步长，按次数线性递增
	TransientBackoff time.Duration
	// Sleep 等待实现，nil 时使用 context 感知的默认实现
	Sleep SleepFunc
}

// DefaultOptions 返回默认重试选项
func DefaultOptions() Options {
	return Options{
		MaxRetries:       3,
		RateLimitBackoff: time.Second,
		TransientBackoff: time.Second,
	}
}

// Exponential 计算第 n 次重试的指数退避时间（base * 2^n）
func Exponential(base time.Duration, n int) time.Duration {
	d := base
	for i := 0; i < n; i++ {
		d *= 2
	}
	return d
}

// Linear 计算第 n 次重试的线性退避时间（base * (n+1)）
func Linear(base time.Duration, n int) time.Duration {
	return base * time.Duration(n+1)
}

// Sleep 默认等待实现，context 取消时提前返回
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do 执行 fn，按 classify 的分类决定是否重试及退避方式。
// 重试耗尽后返回最后一次的错误。
func Do(ctx context.Context, opts Options, classify Classifier, fn func(ctx context.Context) error) error {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt >= opts.MaxRetries {
			return lastErr
		}

		var wait time.Duration
		switch classify(lastErr) {
		case RateLimited:
			wait = Exponential(opts.RateLimitBackoff, attempt)
		case Transient:
			wait = Linear(opts.TransientBackoff, attempt)
		default:
			return lastErr
		}

		if err := sleep(ctx, wait); err != nil {
			return lastErr
		}
	}
}
