// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	qt "github.com/frankban/quicktest"
	"golang.org/x/exp/mmap"
	"golang.org/x/sync/errgroup"

	"github.com/devblok/vkmol/src/utility/kar"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

var testHeader = kar.Header{
	Author:      "devblok",
	DateCreated: time.Date(2019, 9, 1, 0, 0, 0, 0, time.UTC).Unix(),
	Version:     1,
}

func build(c *qt.C, files map[string]string) []byte {
	builder := kar.NewBuilder(testHeader)
	for name, content := range files {
		c.Assert(builder.Add(name, strings.NewReader(content)), qt.IsNil)
	}

	var buf bytes.Buffer
	written, err := builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)
	c.Assert(written, qt.Equals, int64(buf.Len()))
	return buf.Bytes()
}

func TestCreateAndReadAll(t *testing.T) {
	c := qt.New(t)
	data := build(c, map[string]string{
		"test":  testString1,
		"test2": testString2,
		"empty": "",
	})

	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Names(), qt.DeepEquals, []string{"empty", "test", "test2"})

	header := ar.Header()
	c.Assert(header.Author, qt.Equals, testHeader.Author)
	c.Assert(header.DateCreated, qt.Equals, testHeader.DateCreated)
	c.Assert(header.Version, qt.Equals, int64(1))
	c.Assert(header.Index[1].Size, qt.Equals, int64(len(testString1)))

	for name, expected := range map[string]string{"test": testString1, "test2": testString2, "empty": ""} {
		got, err := ar.ReadAll(name)
		c.Assert(err, qt.IsNil)
		c.Assert(string(got), qt.Equals, expected, qt.Commentf("%s", name))
	}
}

func TestCreateAndRead(t *testing.T) {
	c := qt.New(t)
	ar, err := kar.Open(bytes.NewReader(build(c, map[string]string{"test": testString1})))
	c.Assert(err, qt.IsNil)

	f, err := ar.Open("test")
	c.Assert(err, qt.IsNil)
	c.Assert(f.Size(), qt.Equals, int64(len(testString1)))

	result, err := io.ReadAll(f)
	c.Assert(err, qt.IsNil)
	c.Assert(string(result), qt.Equals, testString1)
}

func TestOpenMissingFile(t *testing.T) {
	c := qt.New(t)
	ar, err := kar.Open(bytes.NewReader(build(c, map[string]string{"test": testString1})))
	c.Assert(err, qt.IsNil)

	_, err = ar.ReadAll("test3")
	c.Assert(err, qt.ErrorMatches, "open test3: file not found in archive")
	c.Assert(errors.Is(err, kar.ErrNotFound), qt.IsTrue)
}

func TestOpenCorrupted(t *testing.T) {
	c := qt.New(t)
	valid := build(c, map[string]string{"test": testString1})

	tests := []struct {
		name string
		data []byte
	}{{
		name: "empty",
		data: nil,
	}, {
		name: "magic",
		data: append([]byte("TAR\x00"), valid[4:]...),
	}, {
		name: "truncated header",
		data: valid[:20],
	}, {
		name: "header size",
		data: append(append([]byte("KAR\x00"), 0, 0, 0, 0, 0, 0, 0, 0), valid[12:]...),
	}}

	for _, test := range tests {
		test := test
		c.Run(test.name, func(c *qt.C) {
			_, err := kar.Open(bytes.NewReader(test.data))
			c.Assert(errors.Is(err, kar.ErrFileFormat), qt.IsTrue, qt.Commentf("%v", err))
		})
	}
}

func TestAddTwice(t *testing.T) {
	c := qt.New(t)
	builder := kar.NewBuilder(testHeader)
	c.Assert(builder.Add("test", strings.NewReader(testString1)), qt.IsNil)
	c.Assert(builder.Add("test", strings.NewReader(testString2)), qt.ErrorMatches, "test added twice")
	c.Assert(builder.Len(), qt.Equals, 1)
}

func TestConcurrentAddAndRead(t *testing.T) {
	c := qt.New(t)
	builder := kar.NewBuilder(testHeader)

	var g errgroup.Group
	for idx := 0; idx < 16; idx++ {
		idx := idx
		g.Go(func() error {
			content := strings.Repeat(fmt.Sprintf("file %d;", idx), 100*(idx+1))
			return builder.Add(fmt.Sprintf("shaders/%02d.spv", idx), strings.NewReader(content))
		})
	}
	c.Assert(g.Wait(), qt.IsNil)
	c.Assert(builder.Len(), qt.Equals, 16)

	var buf bytes.Buffer
	_, err := builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)

	ar, err := kar.Open(bytes.NewReader(buf.Bytes()))
	c.Assert(err, qt.IsNil)
	var readers errgroup.Group
	for idx := 0; idx < 16; idx++ {
		idx := idx
		readers.Go(func() error {
			got, err := ar.ReadAll(fmt.Sprintf("shaders/%02d.spv", idx))
			if err != nil {
				return err
			}
			if expected := strings.Repeat(fmt.Sprintf("file %d;", idx), 100*(idx+1)); string(got) != expected {
				return errors.Newf("file %d does not match", idx)
			}
			return nil
		})
	}
	c.Assert(readers.Wait(), qt.IsNil)
}

func TestOpenmmap(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "opentest.kar")
	c.Assert(os.WriteFile(path, build(c, map[string]string{
		"test/test1.txt": "this is a test",
		"test/test2.txt": "this is another test",
	}), 0o600), qt.IsNil)

	r, err := mmap.Open(path)
	c.Assert(err, qt.IsNil)
	defer r.Close()

	ar, err := kar.Open(r)
	c.Assert(err, qt.IsNil)

	got, err := ar.ReadAll("test/test1.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "this is a test")

	got, err = ar.ReadAll("test/test2.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "this is another test")
}
