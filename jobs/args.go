package jobs

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"github.com/teranos/cronstore/errors"
)

// SerializeArgs renders an argument list in its stored form. Two lists are the
// same job identity only if these strings are byte-identical. A nil list
// serializes like an empty one.
func SerializeArgs(args []any) (string, error) {
	if args == nil {
		args = []any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", errors.Wrapf(errors.ErrInvalidArgs, "failed to serialize args: %v", err)
	}
	return string(data), nil
}

// DeserializeArgs reads a stored argument list. Numbers stay json.Number so
// re-serializing reproduces the stored text exactly.
func DeserializeArgs(s string) ([]any, error) {
	if s == "" {
		return []any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var args []any
	if err := dec.Decode(&args); err != nil {
		return nil, errors.Wrapf(err, "failed to deserialize args %q", s)
	}
	if args == nil {
		args = []any{}
	}
	return args, nil
}

// ArgsKey is the legacy dedup key for an argument list: md5 of its stored form.
func ArgsKey(args []any) (string, error) {
	s, err := SerializeArgs(args)
	if err != nil {
		return "", err
	}
	return SerializedArgsKey(s), nil
}

// SerializedArgsKey is ArgsKey for an already serialized list.
func SerializedArgsKey(serialized string) string {
	sum := md5.Sum([]byte(serialized))
	return hex.EncodeToString(sum[:])
}
