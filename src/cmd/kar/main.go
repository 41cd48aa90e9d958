// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command kar builds, lists and extracts kar archives.
package main

import (
	"flag"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/mmap"
	"golang.org/x/sync/errgroup"

	"github.com/devblok/vkmol/src/utility/kar"
)

func currentUserName() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

var (
	author   = flag.String("author", currentUserName(), "Set the author of the package when compressing")
	version  = flag.Int64("version", 1, "Archive version number to create it with")
	extract  = flag.String("e", "", "Extract the given archive")
	list     = flag.String("l", "", "List the files of the given archive")
	compress = flag.String("c", "", "Compress the given file/folder")
	dstFile  = flag.String("f", "out.kar", "Destination file when compressing")
	dstDir   = flag.String("d", ".", "Destination directory when extracting")
	silent   = flag.Bool("s", false, "Silent")
)

func main() {
	flag.Parse()
	if *silent {
		log.SetLevel(log.WarnLevel)
	}

	ops := 0
	for _, op := range []string{*extract, *list, *compress} {
		if op != "" {
			ops++
		}
	}

	var err error
	switch {
	case ops > 1:
		err = errors.New("only one operation at a time")
	case *compress != "":
		err = compressFiles(*compress, *dstFile)
	case *extract != "":
		err = extractFiles(*extract, *dstDir)
	case *list != "":
		err = listFiles(*list)
	default:
		flag.PrintDefaults()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func compressFiles(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return errors.Newf("destination file %s exists, will not overwrite", dst)
	}

	var filesToCompress []string
	if err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			filesToCompress = append(filesToCompress, path)
		}
		return nil
	}); err != nil {
		return errors.Wrapf(err, "walk %s", src)
	}

	builder := kar.NewBuilder(kar.Header{
		Author:      *author,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})

	var g errgroup.Group
	for _, ftc := range filesToCompress {
		ftc := ftc
		g.Go(func() error {
			f, err := os.Open(ftc)
			if err != nil {
				return err
			}
			defer f.Close()

			name, err := filepath.Rel(src, ftc)
			if err != nil || name == "." {
				name = filepath.Base(ftc)
			}
			log.WithField("file", name).Debug("compressing")
			return builder.Add(filepath.ToSlash(name), f)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	written, err := builder.WriteTo(out)
	if err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"files":   builder.Len(),
		"written": written,
	}).Infof("created %s", dst)
	return nil
}

func openArchive(path string) (*kar.Archive, *mmap.ReaderAt, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, nil, err
	}
	ar, err := kar.Open(r)
	if err != nil {
		r.Close()
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	return ar, r, nil
}

func extractFiles(src, dst string) error {
	ar, r, err := openArchive(src)
	if err != nil {
		return err
	}
	defer r.Close()

	var g errgroup.Group
	for _, name := range ar.Names() {
		name := name
		g.Go(func() error {
			data, err := ar.ReadAll(name)
			if err != nil {
				return err
			}
			path := filepath.Join(dst, filepath.FromSlash(name))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			log.WithField("file", name).Debug("extracting")
			return os.WriteFile(path, data, 0o644)
		})
	}
	return g.Wait()
}

func listFiles(src string) error {
	ar, r, err := openArchive(src)
	if err != nil {
		return err
	}
	defer r.Close()

	header := ar.Header()
	log.WithFields(log.Fields{
		"author":  header.Author,
		"created": time.Unix(header.DateCreated, 0).Format(time.RFC3339),
		"version": header.Version,
	}).Info(src)
	for _, e := range header.Index {
		log.WithFields(log.Fields{
			"size":       e.Size,
			"compressed": e.CompressedSize,
		}).Info(e.Name)
	}
	return nil
}
