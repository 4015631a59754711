package web

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
)

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Errorf(404, "%s", path)
		}
		return nil, err
	}
	if st, err := f.Stat(); err == nil && st.IsDir() {
		f.Close()
		return nil, Errorf(404, "%s is a directory", path)
	}
	return f, nil
}

// sendFile streams a file with a 200 response.
func sendFile(resp *Response, path string) error {
	f, err := openFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := resp.WriteHeader(200); err != nil {
		return err
	}
	_, err = io.Copy(resp, f)
	return err
}

// sendTemplate streams a file line by line substituting {key} fields.
func sendTemplate(resp *Response, path string, data map[string]any) error {
	f, err := openFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	replacer := newReplacer(data)
	if err := resp.WriteHeader(200); err != nil {
		return err
	}

	br := bufio.NewReader(f)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if _, werr := resp.WriteString(replacer.Replace(line)); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func newReplacer(data map[string]any) *strings.Replacer {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(data[k]))
	}
	return strings.NewReplacer(pairs...)
}
