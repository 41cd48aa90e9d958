// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/pierrec/lz4"
)

// Open opens the kar archive from r. It will also check
// if r is actually a kar archive and return ErrFileFormat
// when it's not.
func Open(r io.ReaderAt) (*Archive, error) {
	prefix := make([]byte, MagicLength+HeaderSizeNumberLength)
	if _, err := r.ReadAt(prefix, 0); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read magic"), ErrFileFormat)
	}
	if !bytes.Equal(prefix[:MagicLength], magic[:]) {
		return nil, ErrFileFormat
	}

	headerSize := binaryToInt64(prefix[MagicLength:])
	if headerSize <= 0 {
		return nil, errors.Wrapf(ErrFileFormat, "header size %d", headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := r.ReadAt(headerBytes, int64(len(prefix))); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read header"), ErrFileFormat)
	}

	var header Header
	if err := gobDecode(&header, headerBytes); err != nil {
		return nil, err
	}

	ar := &Archive{
		reader: r,
		header: header,
		start:  int64(len(prefix)) + headerSize,
		index:  make(map[string]IndexEntry, len(header.Index)),
	}
	for _, e := range header.Index {
		ar.index[e.Name] = e
	}
	return ar, nil
}

// Archive provides concurrent io for a kar file, and can provide
// an io.Reader for each file separately to perform actions on.
type Archive struct {
	reader io.ReaderAt
	header Header
	start  int64
	index  map[string]IndexEntry
}

// Header returns the archive header.
func (a *Archive) Header() Header {
	return a.header
}

// Names lists the files in the archive in order.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.header.Index))
	for _, e := range a.header.Index {
		names = append(names, e.Name)
	}
	return names
}

// ReadAll returns the entire contents of a file with a given name.
func (a *Archive) ReadAll(name string) ([]byte, error) {
	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}

	data := make([]byte, r.Size())
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read %s", name), ErrFileFormat)
	}
	return data, nil
}

// Open returns a Reader for a file in the Archive.
func (a *Archive) Open(name string) (*Reader, error) {
	e, ok := a.index[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "open %s", name)
	}
	section := io.NewSectionReader(a.reader, a.start+e.Offset, e.CompressedSize)
	return &Reader{
		entry:  e,
		reader: lz4.NewReader(section),
	}, nil
}

// Reader is a reader for a single file in an Archive.
// Abstracts away the location that needs to be known.
type Reader struct {
	entry  IndexEntry
	reader io.Reader
}

// Size returns the decompressed size of the file.
func (r *Reader) Size() int64 {
	return r.entry.Size
}

// Read reads already decompressed data.
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.reader.Read(p)
}
