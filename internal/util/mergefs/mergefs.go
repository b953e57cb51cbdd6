// Package mergefs overlays several file systems. Earlier ones shadow later ones.
package mergefs

import (
	"errors"
	"io/fs"
)

type mergeFS struct{ subs []fs.FS }

func (f *mergeFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	for _, sub := range f.subs {
		f, err := sub.Open(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		return f, err
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

func New(subs ...fs.FS) fs.FS {
	nonNil := make([]fs.FS, 0, len(subs))
	for _, s := range subs {
		if s != nil {
			nonNil = append(nonNil, s)
		}
	}
	return &mergeFS{subs: nonNil}
}
