package profile

import (
	"context"
	"os"

	"mealsuggest"
)

// File is a Provider reading a profiles document from local disk.
type File struct {
	Path string
}

func NewFile(path string) *File {
	return &File{Path: path}
}

func (f *File) Load(ctx context.Context, userID string) (*mealsuggest.UserProfile, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	return decodeDocument(data, userID)
}
