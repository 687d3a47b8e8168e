package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"advisor-stream/internal/config"
	"advisor-stream/internal/model"
	"advisor-stream/internal/service"
	"advisor-stream/pkg/logger"
)

// 终端聊天客户端，验证协议客户端的完整链路
// 流式输出过程中 Ctrl-C 取消当前回答，空闲时 Ctrl-C 退出
func main() {
	var (
		configPath string
		surface    string
		datasetID  string
	)
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.StringVar(&surface, "topic", "mentor", "聊天入口: mentor | dataset | analysis")
	flag.StringVar(&datasetID, "dataset", "", "dataset 入口的数据集 ID")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	topic := model.Topic{Surface: model.TopicSurface(surface), DatasetID: datasetID}
	client := service.NewChatClient(cfg.Client, topic)
	updates := client.Subscribe()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for range sigCh {
			snap := client.Snapshot()
			if snap.Status.Active() {
				client.Cancel()
				continue
			}
			fmt.Println()
			os.Exit(0)
		}
	}()

	fmt.Printf("已连接 %s（话题: %s），输入问题，/exit 退出，/clear 清空会话\n", cfg.Client.BaseURL, surface)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "/exit" {
			break
		}
		if question == "/clear" {
			client.Reset()
			fmt.Println("会话已清空")
			continue
		}

		runTurn(client, updates, question)
	}
}

func runTurn(client *service.ChatClient, updates <-chan struct{}, question string) {
	if err := client.Ask(context.Background(), question); err != nil {
		fmt.Printf("提交失败: %v\n", err)
		return
	}

	var (
		printed       string
		sourcesShown  bool
		thinkingShown bool
	)

	for range updates {
		snap := client.Snapshot()

		if snap.Status == model.StatusThinking && !thinkingShown {
			fmt.Print("（思考中…）")
			thinkingShown = true
		}

		if !sourcesShown && len(snap.ContextSources) > 0 {
			fmt.Printf("\r[参考: %s]\n", strings.Join(snap.ContextSources, ", "))
			sourcesShown = true
		}

		if last := snap.LastMessage(); last != nil && last.Role == model.RoleAssistant {
			// 服务端每次重发累积全文，这里只打印增量
			if strings.HasPrefix(last.Content, printed) {
				fmt.Print(last.Content[len(printed):])
			} else {
				fmt.Print("\n" + last.Content)
			}
			printed = last.Content
		}

		switch snap.Status {
		case model.StatusDone:
			fmt.Println()
			logger.Debugf("conversation_id=%s", snap.ID)
			return
		case model.StatusError:
			fmt.Printf("\n[错误] %s\n", snap.Error)
			return
		case model.StatusCancelled:
			fmt.Println("\n（已取消）")
			return
		}
	}
}
