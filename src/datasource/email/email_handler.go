// email_handler.go
package email

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ====================== 邮件处理器实现 ======================

// CSVAttachmentHandler 将目标邮件中的CSV附件替换为看板的数据文件
type CSVAttachmentHandler struct {
	TargetSubject string                  // 目标邮件主题关键词
	DataPath      string                  // 数据文件路径
	Validate      func(data []byte) error // 替换前校验附件内容，为nil时不校验
	processedUIDs map[uint32]bool         // 已处理邮件UID记录
	mu            sync.RWMutex            // 保护processedUIDs的读写锁
}

func NewCSVAttachmentHandler(subject, dataPath string, validate func([]byte) error) *CSVAttachmentHandler {
	return &CSVAttachmentHandler{
		TargetSubject: subject,
		DataPath:      dataPath,
		Validate:      validate,
		processedUIDs: make(map[uint32]bool),
	}
}

// IsProcessed 检查邮件是否已处理过（线程安全）
func (h *CSVAttachmentHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *CSVAttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 处理单个邮件，用第一个CSV附件原子替换数据文件
func (h *CSVAttachmentHandler) Handle(email *Email) (bool, error) {
	if h.IsProcessed(email.UID) {
		return false, nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		return false, nil
	}

	var attachment *Attachment
	for _, a := range email.Attachments {
		if strings.EqualFold(filepath.Ext(a.Filename), ".csv") {
			attachment = a
			break
		}
	}
	if attachment == nil {
		return false, nil
	}

	if h.Validate != nil {
		if err := h.Validate(attachment.Content); err != nil {
			// 无效附件不再重复处理
			h.markAsProcessed(email.UID)
			return false, fmt.Errorf("附件 %s 校验失败: %w", attachment.Filename, err)
		}
	}

	if err := writeAtomic(h.DataPath, attachment.Content); err != nil {
		return false, err
	}

	h.markAsProcessed(email.UID)
	return true, nil
}

// writeAtomic 先写临时文件再重命名，读取方不会看到写了一半的文件
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.ReadFrom(bytes.NewReader(data)); err != nil {
		tmp.Close()
		return fmt.Errorf("保存附件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("保存附件失败: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("替换数据文件失败: %w", err)
	}
	return nil
}
