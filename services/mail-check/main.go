// mail-check 使用当前配置发送SMTP测试邮件
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/freedkr/paycheck/internal/config"
	"github.com/freedkr/paycheck/internal/logging"
	"github.com/freedkr/paycheck/internal/notify"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	to := flag.String("to", "", "收件地址，默认发给发件人自己")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.App)

	recipient := *to
	if recipient == "" {
		recipient = cfg.Email.Sender
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Email.Timeout)
	defer cancel()

	if err := notify.NewNotifier(cfg.Email, logger).SendTest(ctx, recipient); err != nil {
		fmt.Fprintf(os.Stderr, "测试邮件发送失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("测试邮件已发送至 %s\n", recipient)
}
