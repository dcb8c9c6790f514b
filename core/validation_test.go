package core

import (
	"errors"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name: "valid document",
			doc: &Document{
				Filename:    "handbook.md",
				Title:       "Handbook",
				ContentType: ".md",
				FileSize:    2048,
			},
			wantErr: nil,
		},
		{
			name: "valid document without title",
			doc: &Document{
				Filename: "notes.txt",
				FileSize: 10,
			},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name: "empty filename",
			doc: &Document{
				Title:    "Untitled",
				FileSize: 10,
			},
			wantErr: ErrEmptyFilename,
		},
		{
			name: "negative file size",
			doc: &Document{
				Filename: "broken.txt",
				FileSize: -1,
			},
			wantErr: ErrInvalidDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name:    "valid chunk",
			chunk:   &Chunk{DocumentId: 1, Index: 0, Content: "hello"},
			wantErr: nil,
		},
		{
			name:    "valid chunk without vector",
			chunk:   &Chunk{DocumentId: 1, Index: 3, Content: "tail", Vector: nil},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "empty content",
			chunk:   &Chunk{DocumentId: 1, Index: 0},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "negative index",
			chunk:   &Chunk{DocumentId: 1, Index: -1, Content: "x"},
			wantErr: ErrNegativeIndex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunking(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "defaults", size: 800, overlap: 200, wantErr: false},
		{name: "zero overlap", size: 100, overlap: 0, wantErr: false},
		{name: "overlap equals size", size: 100, overlap: 100, wantErr: true},
		{name: "overlap exceeds size", size: 100, overlap: 150, wantErr: true},
		{name: "negative overlap", size: 100, overlap: -1, wantErr: true},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "negative size", size: -5, overlap: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunking(tt.size, tt.overlap)
			if tt.wantErr && !errors.Is(err, ErrInvalidChunking) {
				t.Errorf("ValidateChunking(%d, %d) = %v, want ErrInvalidChunking", tt.size, tt.overlap, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateChunking(%d, %d) unexpected error: %v", tt.size, tt.overlap, err)
			}
		})
	}
}

func TestValidateVector(t *testing.T) {
	if err := ValidateVector(nil, 1536); err != nil {
		t.Errorf("empty vector should be valid: %v", err)
	}
	if err := ValidateVector(make([]float32, 1536), 1536); err != nil {
		t.Errorf("matching vector should be valid: %v", err)
	}
	if err := ValidateVector(make([]float32, 384), 1536); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("mismatched vector = %v, want ErrDimensionMismatch", err)
	}
}
