package manager

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// modelFileExts are the single-file weight formats the in-process engine loads.
var modelFileExts = []string{".gguf", ".ggml", ".bin"}

// findModelFile returns p when it is a file, or the first weights file below
// p (lexical order, by extension preference) when it is a directory.
func findModelFile(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New("model path is empty")
	}
	fi, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return p, nil
	}
	found := map[string][]string{}
	err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		found[ext] = append(found[ext], path)
		return nil
	})
	if err != nil {
		return "", err
	}
	for _, ext := range modelFileExts {
		if c := found[ext]; len(c) > 0 {
			sort.Strings(c)
			return c[0], nil
		}
	}
	return "", fmt.Errorf("no model weights (%s) under %s", strings.Join(modelFileExts, ", "), p)
}
