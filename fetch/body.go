package fetch

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

// MaxFragmentSize is the largest fragment a source reads.
const MaxFragmentSize = 4 << 20

func readBody(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxFragmentSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "read fragment")
	}

	if len(b) > MaxFragmentSize {
		return nil, errors.Newf("fragment exceeds %d bytes", MaxFragmentSize)
	}

	return b, nil
}

// extract returns the value at the gjson path, or the whole value for an empty path.
func extract(value, path, what string) (string, error) {
	if path == "" {
		return value, nil
	}

	result := gjson.Get(value, path)
	if !result.Exists() {
		return "", errors.Errorf("path %q not found in %s", path, what)
	}

	return result.String(), nil
}
