package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeVideo       = "video/"
	MimeImage       = "image/"
	MimeAudio       = "audio/"
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
)

var (
	AllowedVideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".wmv", ".flv", ".webm"}

	// 课程资料允许的 MIME 前缀
	MaterialMimeTypes = []string{MimeVideo, MimeImage, MimeAudio, MimePDF, "application/zip", "text/plain",
		"application/msword", "application/vnd.openxmlformats-officedocument"}

	// 作业附件
	SubmissionMimeTypes = []string{MimePDF, MimeImage, "application/zip", "text/plain",
		"application/msword", "application/vnd.openxmlformats-officedocument"}
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)
