package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"advisor-stream/internal/model"
	"advisor-stream/pkg/logger"
)

// RawEvent 线上原始事件帧
type RawEvent struct {
	Name string
	Data string
}

// Reader 包装一次 SSE 响应，产出惰性、单遍的事件序列
// 序列不可重放，新提问必须重新 Open
type Reader struct {
	events chan RawEvent
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// Open 发起流式请求并开始解析
// 连接建立前的失败（拨号失败、非 2xx）直接返回错误
func Open(ctx context.Context, client *http.Client, req model.StreamRequest) (*Reader, error) {
	body, err := json.Marshal(req.Body())
	if err != nil {
		return nil, fmt.Errorf("marshal stream request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("open stream: unexpected status %d", resp.StatusCode)
	}

	r := &Reader{
		events: make(chan RawEvent),
		cancel: cancel,
	}

	go r.consume(ctx, resp.Body)

	return r, nil
}

// Events 事件通道，流结束或取消后关闭
func (r *Reader) Events() <-chan RawEvent {
	return r.events
}

// Cancel 立即中断底层传输，幂等
// 调用后序列不再产出新事件
func (r *Reader) Cancel() {
	r.cancel()
}

// Err 通道关闭后返回传输层错误
// 干净关闭（服务端正常结束或本地取消）返回 nil
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Reader) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

// consume 逐行解析 SSE 帧并推送
// 不做整流缓冲：事件到达即产出
func (r *Reader) consume(ctx context.Context, body io.ReadCloser) {
	defer close(r.events)
	defer body.Close()
	defer r.cancel()

	br := bufio.NewReader(body)
	var (
		eventName string
		dataLines []string
	)

	flush := func() bool {
		if len(dataLines) == 0 {
			eventName = ""
			return true
		}
		ev := RawEvent{
			Name: eventName,
			Data: strings.Join(dataLines, "\n"),
		}
		eventName = ""
		dataLines = nil

		select {
		case r.events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				flush()
				return
			}
			if ctx.Err() != nil {
				// 本地取消导致的读中断不算传输错误
				return
			}
			logger.Debugf("stream read aborted: %v", err)
			r.setErr(err)
			return
		}
		line = strings.TrimRight(line, "\r\n")

		// 空行结束一帧
		if line == "" {
			if !flush() {
				return
			}
			continue
		}

		// 注释行
		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "event:") {
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}

		if strings.HasPrefix(line, "data:") {
			// 冒号后只去一个空格，载荷内的空白原样保留
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			continue
		}
	}
}
