package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/kjk/objstore/codec"
	"github.com/kjk/objstore/log"
	"github.com/kjk/objstore/mappedfile"
	"github.com/kjk/objstore/minioutil"
	"github.com/kjk/objstore/objstore"
	"github.com/kjk/objstore/siser"
	"github.com/kjk/objstore/u"
	"github.com/tidwall/pretty"
)

var (
	flgCodec   string
	flgDump    bool
	flgVerbose bool
	flgJSON    bool
	flgVerify  bool
	flgUpload  string
	flgLogDir  string
)

type stats struct {
	Path          string `json:"path"`
	Codec         string `json:"codec"`
	Records       int64  `json:"records"`
	Length        int64  `json:"length"`
	FileSize      int64  `json:"file_size"`
	MinRecord     int64  `json:"min_record"`
	MaxRecord     int64  `json:"max_record"`
	AvgRecord     int64  `json:"avg_record"`
	Verified      int64  `json:"verified,omitempty"`
	UploadedTo    string `json:"uploaded_to,omitempty"`
	DurationMicro int64  `json:"duration_micro"`
}

func (s *stats) add(size int64) {
	if s.Records == 0 || size < s.MinRecord {
		s.MinRecord = size
	}
	if size > s.MaxRecord {
		s.MaxRecord = size
	}
	s.Records++
}

func formatValue(v any) string {
	if flgVerbose {
		return spew.Sdump(v)
	}
	switch v := v.(type) {
	case []byte:
		if len(v) > 64 {
			return fmt.Sprintf("%q... (%s)", v[:64], u.FormatSize(int64(len(v))))
		}
		return fmt.Sprintf("%q", v)
	case *siser.ReadRecord:
		var parts []string
		for _, e := range v.Entries {
			parts = append(parts, e.Key+"="+e.Value)
		}
		return v.Name + " " + strings.Join(parts, " ")
	}
	return fmt.Sprintf("%v", v)
}

// process scans all records of the store at path
func process[T any](ctx context.Context, path string, ext codec.Externalizer[T], st *stats) error {
	// only -upload writes: Force() pads the file and writes .len
	opts := &objstore.Options{
		MappedFile: &mappedfile.Options{ReadOnly: flgUpload == ""},
	}
	s, err := objstore.Open(path, ext, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	st.Length = s.CurrentLength()
	prevAddr := int64(-1)
	var prevVal T
	// size of a record is known when we see the next one
	finish := func(nextAddr int64) error {
		if prevAddr < 0 {
			return nil
		}
		st.add(nextAddr - prevAddr)
		if flgDump {
			fmt.Printf("%d: %s\n", prevAddr, formatValue(prevVal))
		}
		if !flgVerify {
			return nil
		}
		v, err := s.Read(prevAddr, true)
		if err != nil {
			return err
		}
		if !sameValue(ext, v, prevVal) {
			return fmt.Errorf("record at %d: Read() returned different value than scan", prevAddr)
		}
		same, err := s.CheckBytesAreTheSame(prevAddr, v)
		if err != nil {
			return err
		}
		if !same {
			return fmt.Errorf("record at %d: serializes to different bytes", prevAddr)
		}
		st.Verified++
		return nil
	}

	var cbErr error
	_, err = s.ProcessAll(ctx, func(addr int64, v T) bool {
		if cbErr = finish(addr); cbErr != nil {
			return false
		}
		prevAddr = addr
		prevVal = v
		return true
	})
	if err == nil {
		err = cbErr
	}
	if err == nil {
		err = finish(st.Length)
	}
	if err != nil {
		return err
	}
	if st.Records > 0 {
		st.AvgRecord = st.Length / st.Records
	}

	if flgUpload != "" {
		if err = s.Force(); err != nil {
			return err
		}
		if err = upload(ctx, path, flgUpload); err != nil {
			return err
		}
		st.UploadedTo = flgUpload
	}
	return s.Close()
}

// values are equal if they serialize to the same bytes
func sameValue[T any](ext codec.Externalizer[T], a, b T) bool {
	da, err := codec.Marshal(ext, a)
	if err != nil {
		return false
	}
	db, err := codec.Marshal(ext, b)
	return err == nil && bytes.Equal(da, db)
}

func upload(ctx context.Context, path string, remotePath string) error {
	config, err := minioutil.ConfigFromEnv()
	if err != nil {
		return err
	}
	mc, err := minioutil.New(ctx, config)
	if err != nil {
		return err
	}
	for _, p := range []string{path, path + ".len"} {
		remote := remotePath + strings.TrimPrefix(p, path) + ".br"
		timeStart := time.Now()
		if _, err = mc.UploadFileBrotliCompressed(ctx, remote, p); err != nil {
			return fmt.Errorf("upload of '%s' as '%s' failed: %w", p, remote, err)
		}
		log.Logf("uploaded '%s' as '%s' in %s\n", p, mc.URLForPath(remote), time.Since(timeStart))
	}
	return nil
}

func run(ctx context.Context, path string) (*stats, error) {
	st := &stats{
		Path:     path,
		Codec:    flgCodec,
		FileSize: u.FileSize(path),
	}
	timeStart := time.Now()
	var err error
	switch flgCodec {
	case "string":
		err = process[string](ctx, path, codec.String{}, st)
	case "bytes":
		err = process[[]byte](ctx, path, codec.Bytes{}, st)
	case "int64":
		err = process[int64](ctx, path, codec.Int64{}, st)
	case "uint64":
		err = process[uint64](ctx, path, codec.Uint64{}, st)
	case "zstd":
		err = process[[]byte](ctx, path, codec.Zstd{}, st)
	case "brotli":
		err = process[[]byte](ctx, path, codec.Brotli{}, st)
	case "siser":
		err = process[*siser.ReadRecord](ctx, path, codec.SiserRecord{}, st)
	default:
		err = fmt.Errorf("unknown codec '%s'", flgCodec)
	}
	st.DurationMicro = time.Since(timeStart).Microseconds()
	log.EventWithDuration("objstat", time.Since(timeStart), "path", path, "records", st.Records, "ok", err == nil)
	return st, err
}

func printStats(st *stats) {
	if flgJSON {
		d, err := json.Marshal(st)
		u.PanicIfErr(err)
		os.Stdout.Write(pretty.Pretty(d))
		return
	}
	fmt.Printf("file:     %s\n", st.Path)
	fmt.Printf("records:  %d\n", st.Records)
	fmt.Printf("length:   %s (file on disk: %s, %.2f%% used)\n", u.FormatSize(st.Length), u.FormatSize(st.FileSize), u.Percent(st.FileSize, st.Length))
	if st.Records > 0 {
		fmt.Printf("record:   min %d, max %d, avg %d bytes\n", st.MinRecord, st.MaxRecord, st.AvgRecord)
	}
	if flgVerify {
		fmt.Printf("verified: %d\n", st.Verified)
	}
	if st.UploadedTo != "" {
		fmt.Printf("uploaded: %s\n", st.UploadedTo)
	}
}

func main() {
	flag.StringVar(&flgCodec, "codec", "string", "record codec: string, bytes, int64, uint64, zstd, brotli, siser")
	flag.BoolVar(&flgDump, "dump", false, "print every record")
	flag.BoolVar(&flgVerbose, "v", false, "verbose logging, dump records with go-spew")
	flag.BoolVar(&flgJSON, "json", false, "print stats as json")
	flag.BoolVar(&flgVerify, "verify", false, "re-read and compare every record")
	flag.StringVar(&flgUpload, "upload", "", "upload store to s3 under this path, uses MINIO_* env variables")
	flag.StringVar(&flgLogDir, "logdir", "", "directory for log files")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: objstat [flags] <file>\n")
		fmt.Fprintf(os.Stderr, "the file is opened read-only, -upload opens it read-write and writes <file>.len\n")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)
	if !u.FileExists(path) {
		fmt.Fprintf(os.Stderr, "file '%s' doesn't exist\n", path)
		os.Exit(1)
	}
	log.Verbose = flgVerbose
	if flgLogDir != "" {
		log.Init(&log.Config{Dir: flgLogDir})
		defer log.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := run(ctx, filepath.Clean(path))
	if errors.Is(err, context.Canceled) {
		log.Logf("interrupted\n")
		os.Exit(1)
	}
	if log.IfErrf(err) {
		os.Exit(1)
	}
	printStats(st)
}
