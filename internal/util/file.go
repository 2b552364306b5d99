package util

import (
	"edu_platform_backend/internal/model"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// ValidateMimeType 读取前 512 字节判断 MIME 类型
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "image/", "video/", "application/pdf"
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	mimeType := http.DetectContentType(buffer[:n])

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return mimeType, nil
		}
	}

	return mimeType, errors.New("invalid file type: " + mimeType)
}

func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

func IsVideo(mimeType string) bool {
	return strings.HasPrefix(mimeType, "video/") || mimeType == "application/x-mpegURL"
}

func IsAudio(mimeType string) bool {
	return strings.HasPrefix(mimeType, "audio/")
}

// MaterialTypeForMime 根据上传文件推断资料类型
func MaterialTypeForMime(mimeType string) model.MaterialType {
	switch {
	case IsVideo(mimeType):
		return model.MaterialVideo
	case IsImage(mimeType):
		return model.MaterialImage
	case IsAudio(mimeType):
		return model.MaterialAudio
	default:
		return model.MaterialDocument
	}
}

// HasVideoExtension 浏览器上传的视频常被识别为 octet-stream，需要再看扩展名
func HasVideoExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range AllowedVideoExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
