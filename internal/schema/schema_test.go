package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name string
		size int64
		want string
	}{
		{name: "zero", size: 0, want: "0.00 Bytes"},
		{name: "bytes", size: 512, want: "512.00 Bytes"},
		{name: "exact kilobyte", size: 1024, want: "1.00 KB"},
		{name: "fractional megabyte", size: 1572864, want: "1.50 MB"},
		{name: "gigabytes", size: 5 * 1024 * 1024 * 1024, want: "5.00 GB"},
		{name: "terabytes cap", size: 1024 * 1024 * 1024 * 1024 * 2048, want: "2048.00 TB"},
		{name: "negative treated as zero", size: -10, want: "0.00 Bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.size))
		})
	}
}

func TestSnapshotTotalSizeBytes(t *testing.T) {
	snap := &Snapshot{
		Tables: []Table{
			{Name: "orders", SizeBytes: 4096},
			{Name: "users", SizeBytes: 2048},
		},
	}
	assert.Equal(t, int64(6144), snap.TotalSizeBytes())

	empty := &Snapshot{}
	assert.Equal(t, int64(0), empty.TotalSizeBytes())
}
