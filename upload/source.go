package upload

import (
	"context"
	"path"
	"strings"

	"go.uber.org/zap"
)

// UploadRequest is handed to a StorageSource.
type UploadRequest struct {
	File     File
	FileName string // may be empty: the source picks a name
	Path     string // storage directory, "/" when unset
	Metadata map[string]string
}

// Key is the object key of the request: Path joined with FileName, or with
// the file's own name when FileName is empty. It carries no leading slash.
func (r UploadRequest) Key() string {
	name := r.FileName
	if name == "" && r.File != nil {
		name = r.File.Name()
	}
	return strings.TrimPrefix(path.Join(strings.Trim(r.Path, "/"), name), "/")
}

// UploadResult reports where the file was stored.
type UploadResult struct {
	Path string
}

// StorageSource is the upload transport. Implementations live under storage/.
type StorageSource interface {
	UploadFile(ctx context.Context, req UploadRequest) (UploadResult, error)
	GetDownloadURL(ctx context.Context, path string) (string, error)
}

// PostProcessFunc transforms a stored path or URL before it settles.
type PostProcessFunc func(ctx context.Context, pathOrURL string) (string, error)

// FileNameBuilder names a dropped file. An empty name rejects the drop.
type FileNameBuilder func(f File) (string, error)

// StoragePathBuilder picks the storage directory of a dropped file.
type StoragePathBuilder func(f File) string

// NotificationType classifies a Notification.
type NotificationType string

const (
	NotifyError   NotificationType = "error"
	NotifyWarning NotificationType = "warning"
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
)

// Notification is a user facing message.
type Notification struct {
	Type    NotificationType
	Title   string
	Message string
}

// Notifier surfaces notifications to the user. Notify must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to a logger.
func LogNotifier(l *zap.Logger) Notifier {
	if l == nil {
		l = zap.NewNop()
	}
	return NotifierFunc(func(n Notification) {
		fields := []zap.Field{zap.String("title", n.Title), zap.String("message", n.Message)}
		switch n.Type {
		case NotifyError:
			l.Error("notification", fields...)
		case NotifyWarning:
			l.Warn("notification", fields...)
		default:
			l.Info("notification", fields...)
		}
	})
}
