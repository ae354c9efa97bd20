// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package middleware

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// CompressionAlgorithm represents supported compression algorithms
type CompressionAlgorithm int

const (
	AlgorithmNone CompressionAlgorithm = iota
	AlgorithmGzip
	AlgorithmBrotli
	AlgorithmZstd
	AlgorithmDeflate
)

// compressionWriter wraps an http.ResponseWriter and starts compressing once
// the response crosses the minimum size threshold.
type compressionWriter struct {
	http.ResponseWriter
	algorithm   CompressionAlgorithm
	writer      io.Writer
	size        int
	minSize     int
	level       int
	wroteHeader bool
	initialized bool
}

func (w *compressionWriter) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	w.size += len(data)

	if !w.initialized && w.size >= w.minSize {
		w.initialized = true
		if w.shouldCompress() {
			if err := w.initCompression(); err != nil {
				w.writer = w.ResponseWriter
			}
		} else {
			w.writer = w.ResponseWriter
		}
	}

	if w.writer == nil {
		w.writer = w.ResponseWriter
	}

	return w.writer.Write(data)
}

func (w *compressionWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	// Content-Length no longer holds once the body is compressed.
	if w.size == 0 {
		w.Header().Del("Content-Length")
	}

	w.ResponseWriter.WriteHeader(code)
}

func (w *compressionWriter) shouldCompress() bool {
	contentType := w.Header().Get("Content-Type")
	return strings.Contains(contentType, "text/") ||
		strings.Contains(contentType, "application/json") ||
		strings.Contains(contentType, "application/xml") ||
		strings.Contains(contentType, "application/javascript")
}

func (w *compressionWriter) initCompression() error {
	switch w.algorithm {
	case AlgorithmZstd:
		w.Header().Set("Content-Encoding", "zstd")
		encoder, err := zstd.NewWriter(w.ResponseWriter, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(w.level)))
		if err != nil {
			return err
		}
		w.writer = encoder

	case AlgorithmBrotli:
		w.Header().Set("Content-Encoding", "br")
		w.writer = brotli.NewWriterLevel(w.ResponseWriter, w.level)

	case AlgorithmGzip:
		w.Header().Set("Content-Encoding", "gzip")
		var err error
		w.writer, err = gzip.NewWriterLevel(w.ResponseWriter, w.level)
		if err != nil {
			return err
		}

	case AlgorithmDeflate:
		w.Header().Set("Content-Encoding", "deflate")
		w.writer, _ = flate.NewWriter(w.ResponseWriter, w.level)
	}

	return nil
}

func (w *compressionWriter) Flush() {
	if flusher, ok := w.writer.(http.Flusher); ok {
		flusher.Flush()
	}
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *compressionWriter) Close() error {
	if closer, ok := w.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// negotiateAlgorithm determines the compression algorithm from client
// preferences. Priority order: zstd > brotli > gzip > deflate > none.
func negotiateAlgorithm(acceptEncoding string) CompressionAlgorithm {
	encodings := parseAcceptEncoding(acceptEncoding)

	switch {
	case encodings["zstd"] > 0:
		return AlgorithmZstd
	case encodings["br"] > 0:
		return AlgorithmBrotli
	case encodings["gzip"] > 0:
		return AlgorithmGzip
	case encodings["deflate"] > 0:
		return AlgorithmDeflate
	default:
		return AlgorithmNone
	}
}

// parseAcceptEncoding parses the Accept-Encoding header into quality values.
func parseAcceptEncoding(acceptEncoding string) map[string]float64 {
	encodings := make(map[string]float64)

	for _, part := range strings.Split(acceptEncoding, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		encoding := part
		qvalue := 1.0

		if idx := strings.Index(part, ";q="); idx != -1 {
			encoding = strings.TrimSpace(part[:idx])
			if q, err := strconv.ParseFloat(strings.TrimSpace(part[idx+3:]), 64); err == nil {
				qvalue = q
			}
		}

		if encoding == "*" {
			for _, name := range []string{"zstd", "br", "gzip", "deflate"} {
				encodings[name] = qvalue
			}
			continue
		}
		encodings[encoding] = qvalue
	}

	return encodings
}

// SelectiveCompress returns a middleware that compresses responses above a
// minimum size using the best algorithm the client accepts.
func SelectiveCompress(minSize, level int) func(http.Handler) http.Handler {
	if level < 1 {
		level = 1
	}
	if level > 9 {
		level = 9
	}
	if minSize < 0 {
		minSize = 1024
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			algorithm := negotiateAlgorithm(r.Header.Get("Accept-Encoding"))
			if algorithm == AlgorithmNone {
				next.ServeHTTP(w, r)
				return
			}

			wrapped := &compressionWriter{
				ResponseWriter: w,
				algorithm:      algorithm,
				minSize:        minSize,
				level:          level,
			}

			w.Header().Set("Vary", "Accept-Encoding")

			next.ServeHTTP(wrapped, r)

			if wrapped.writer != nil {
				wrapped.Close()
			}
		})
	}
}
