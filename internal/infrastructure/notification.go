package infrastructure

import (
	"fmt"
	"os/exec"

	"github.com/yourusername/cmip6-fetch-go/internal/domain"
	"go.uber.org/zap"
)

// NotificationService sends desktop notifications about finished runs.
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	switch n.config.Method {
	case "osascript":
		return n.sendOSAScript(title, message)
	case "notify-send":
		return n.sendNotifySend(title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}
}

// sendOSAScript sends notification using macOS osascript
func (n *NotificationService) sendOSAScript(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
	cmd := exec.Command("osascript", "-e", script)

	if err := cmd.Run(); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", "osascript"),
			zap.Error(err))
		return err
	}

	return nil
}

// sendNotifySend sends notification using Linux notify-send
func (n *NotificationService) sendNotifySend(title, message string) error {
	cmd := exec.Command("notify-send", title, message)

	if err := cmd.Run(); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", "notify-send"),
			zap.Error(err))
		return err
	}

	return nil
}

// NotifyRunFinished sends a summary notification when a run finishes.
func (n *NotificationService) NotifyRunFinished(mode domain.Mode, result *domain.PlanResult) {
	var title, message string
	if result.OK() {
		title = "Download Run Completed"
		message = fmt.Sprintf("%s: %d succeeded, %d skipped", mode, result.Succeeded, result.Skipped)
	} else {
		title = "Download Run Finished With Failures"
		message = fmt.Sprintf("%s: %d succeeded, %d failed, %d skipped",
			mode, result.Succeeded, len(result.Failed), result.Skipped)
	}
	n.Send(title, message)
}
