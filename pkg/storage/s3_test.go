package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordingKey(t *testing.T) {
	tests := []struct {
		fileType string
		want     string
	}{
		{"MP4", "recordings/123/rec-1.mp4"},
		{"mp4", "recordings/123/rec-1.mp4"},
		{"M4A", "recordings/123/rec-1.m4a"},
		{"CHAT", "recordings/123/rec-1.txt"},
		{"TRANSCRIPT", "recordings/123/rec-1.vtt"},
		{"CC", "recordings/123/rec-1.vtt"},
		{"CSV", "recordings/123/rec-1.csv"},
		{"TIMELINE", "recordings/123/rec-1.bin"},
		{"", "recordings/123/rec-1.bin"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RecordingKey("123", "rec-1", tt.fileType), tt.fileType)
	}
}

func TestContentTypeForFileType(t *testing.T) {
	assert.Equal(t, "video/mp4", ContentTypeForFileType("MP4"))
	assert.Equal(t, "video/mp4", ContentTypeForFileType("mp4"))
	assert.Equal(t, "audio/mp4", ContentTypeForFileType("M4A"))
	assert.Equal(t, "text/plain", ContentTypeForFileType("CHAT"))
	assert.Equal(t, "text/vtt", ContentTypeForFileType("CC"))
	assert.Equal(t, "application/octet-stream", ContentTypeForFileType("TIMELINE"))
}
