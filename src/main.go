package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron"

	"VocDashboard/src/config"
	"VocDashboard/src/dashboard"
	"VocDashboard/src/datapush"
	"VocDashboard/src/datasource/email"
	"VocDashboard/src/datasource/file"
	"VocDashboard/src/processor"
	"VocDashboard/src/report"
	"VocDashboard/src/storage"
)

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Close()

	loader := file.NewLoader(cfg, dcfg)
	repo := storage.NewRepository(loader)

	// 启动时加载一次，数据文件不可用直接退出
	rs, err := repo.Records()
	if err != nil {
		logger.Fatal("加载数据失败: " + err.Error())
		log.Fatal("Failed to load dataset:", err)
	}
	logger.Info(fmt.Sprintf("数据加载完成: %s, %d 行", cfg.DataPath, rs.Len()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WatchData {
		if err := watchData(ctx, cfg.DataPath, repo, logger); err != nil {
			logger.Error("数据文件监控启动失败: " + err.Error())
		}
	}

	c, err := setupCron(cfg, dcfg, loader, repo, logger)
	if err != nil {
		logger.Error("创建定时任务失败: " + err.Error())
		return // 重要错误应该终止程序
	}
	c.Start()
	defer c.Stop()

	server, err := dashboard.NewServer(repo, logger, dcfg.TopN)
	if err != nil {
		logger.Error("创建看板失败: " + err.Error())
		return
	}
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("看板已启动: " + cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP服务异常退出: " + err.Error())
			cancel()
		}
	}()

	waitForShutdown(ctx, repo, logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭HTTP服务失败: " + err.Error())
	}
}

// setupCron 注册报表、邮件检查与日志轮转任务
func setupCron(cfg *config.Config, dcfg *config.DataConfig, loader *file.CSVLoader, repo *storage.Repository, logger *storage.Logger) (*cron.Cron, error) {
	c := cron.New()

	if cfg.Report.Schedule != "" {
		var pusher *datapush.MailPusher
		if cfg.SendEmail.Enabled {
			pusher = datapush.NewMailPusher(cfg)
		}
		err := c.AddFunc(cfg.Report.Schedule, func() {
			if err := runReport(repo, cfg.Report.Dir, dcfg.TopN, pusher, logger, time.Now()); err != nil {
				logger.Error(err.Error())
			}
		})
		if err != nil {
			return nil, fmt.Errorf("报表任务(%s): %w", cfg.Report.Schedule, err)
		}
	}

	if cfg.Email.Enabled && !mailIngestionSupported(cfg.DataPath) {
		// 附件只能是CSV，不能覆盖其他格式的数据文件
		logger.Warning("数据文件不是CSV，跳过邮件附件更新: " + cfg.DataPath)
	} else if cfg.Email.Enabled {
		emailClient := email.NewEmailClient(
			cfg.Email.Server,
			cfg.Email.Username,
			cfg.Email.Password)
		handler := email.NewCSVAttachmentHandler(cfg.Email.TargetSubject, cfg.DataPath, loader.Validate)

		// 使用配置中的检查间隔
		interval := time.Duration(cfg.Email.CheckInterval).String() // 例如 "5m0s"
		cronSpec := fmt.Sprintf("@every %s", interval)

		err := c.AddFunc(cronSpec, func() {
			updated, err := email.CheckAndProcessEmails(emailClient, handler, cfg.Email.TargetSubject, logger)
			if err != nil {
				logger.Error("检查处理邮件失败: " + err.Error())
				return
			}
			if updated {
				repo.Invalidate()
				logger.Info("数据文件已由邮件附件更新")
			}
		})
		if err != nil {
			return nil, fmt.Errorf("邮件任务(%s): %w", cronSpec, err)
		}
		logger.Info(fmt.Sprintf("邮件监控已启动(检查间隔: %v)", interval))
	}

	if cfg.LogMaxSize != "" {
		err := c.AddFunc("@every 1m", func() {
			if err := logger.CheckRotate(cfg.LogMaxSize); err != nil {
				logger.Error("日志轮转失败: " + err.Error())
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// runReport 生成报表并按需推送，邮件正文与附件使用同一份汇总
func runReport(repo *storage.Repository, dir string, topN int, pusher *datapush.MailPusher, logger *storage.Logger, now time.Time) error {
	path, sum, err := exportReport(repo, dir, topN, now)
	if err != nil {
		return fmt.Errorf("生成报表失败: %w", err)
	}
	logger.Info("报表已生成: " + path)

	if pusher == nil {
		return nil
	}
	if err := pusher.Push(sum, path); err != nil {
		return err
	}
	logger.Info("报表邮件已发送")
	return nil
}

// exportReport 以默认条件生成报表，返回文件路径和写入的汇总
func exportReport(repo *storage.Repository, dir string, topN int, now time.Time) (string, processor.Summary, error) {
	rs, err := repo.Records()
	if err != nil {
		return "", processor.Summary{}, err
	}
	sel := processor.DefaultSelection(rs)
	sum := processor.SummarizeN(rs.Filter(sel), topN)

	path := filepath.Join(dir, report.FileName(now))
	if err := report.SaveToExcel(path, sum, sel, now); err != nil {
		return "", processor.Summary{}, err
	}
	return path, sum, nil
}

// mailIngestionSupported 邮件附件为CSV，只能替换CSV数据文件
func mailIngestionSupported(dataPath string) bool {
	return strings.EqualFold(filepath.Ext(dataPath), ".csv")
}

// watchData 数据文件变化时丢弃缓存，下次请求重新加载
func watchData(ctx context.Context, path string, repo *storage.Repository, logger *storage.Logger) error {
	monitor, err := file.NewFileMonitor(path)
	if err != nil {
		return err
	}
	go func() {
		defer monitor.Close()
		err := monitor.Watch(ctx, func(name string) {
			repo.Invalidate()
			logger.Info("数据文件已变化: " + name)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("数据文件监控异常: " + err.Error())
		}
	}()
	return nil
}

// waitForShutdown SIGHUP 重新打开日志并丢弃缓存；SIGINT/SIGTERM 退出
func waitForShutdown(ctx context.Context, repo *storage.Repository, logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				if err := logger.Reopen(); err != nil {
					log.Println("Failed to reopen log:", err)
				}
				repo.Invalidate()
				logger.Info("Received SIGHUP, log reopened and dataset invalidated")
				continue
			}
			logger.Info("Received signal: " + sig.String() + ", shutting down...")
			return
		case <-ctx.Done():
			return
		}
	}
}
