// Package serve exposes a Scanner over newline-delimited JSON, one request
// per line on the input and one response per line on the output.
//
// Clients open named streams and feed them chunks as they arrive; match
// offsets are relative to the start of each stream, so a signature split
// across two feeds is reported once, in the feed where it ends.
package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/praetorian-inc/pktmatch"
	"github.com/praetorian-inc/pktmatch/pkg/types"
)

// Version is the server protocol version
const Version = "1.0.0"

// Server owns the per-stream state of one client connection. All requests
// are handled on the Run goroutine.
type Server struct {
	scanner *pktmatch.Scanner
	streams map[string]*pktmatch.Stream
	encoder *json.Encoder
	decoder *json.Decoder
}

// NewServer creates a server reading requests from in and writing
// responses to out.
func NewServer(scanner *pktmatch.Scanner, in io.Reader, out io.Writer) *Server {
	return &Server{
		scanner: scanner,
		streams: make(map[string]*pktmatch.Stream),
		encoder: json.NewEncoder(out),
		decoder: json.NewDecoder(bufio.NewReader(in)),
	}
}

// Run sends a ready message, then serves requests until the input ends, a
// "close" request arrives, or ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.send("ready", ReadyData{Version: Version, Signatures: s.scanner.SignatureCount()})

	reqChan := make(chan Request, 1)
	errChan := make(chan error, 1)

	go func() {
		for {
			var req Request
			if err := s.decoder.Decode(&req); err != nil {
				errChan <- err
				return
			}
			select {
			case reqChan <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			// The decoder may have queued a request before failing.
			for {
				select {
				case req := <-reqChan:
					if s.handle(req) {
						return nil
					}
				default:
					if !errors.Is(err, io.EOF) {
						s.sendError("decode", err)
					}
					return nil
				}
			}
		case req := <-reqChan:
			if s.handle(req) {
				return nil
			}
		}
	}
}

// handle processes a single request and reports whether the server should exit.
func (s *Server) handle(req Request) bool {
	var err error
	switch req.Type {
	case "scan":
		err = s.handleScan(req.Payload)
	case "open":
		err = s.handleOpen(req.Payload)
	case "feed":
		err = s.handleFeed(req.Payload)
	case "reset":
		err = s.handleReset(req.Payload)
	case "close_stream":
		err = s.handleCloseStream(req.Payload)
	case "close":
		return true
	default:
		err = fmt.Errorf("unknown request type: %s", req.Type)
		req.Type = "unknown"
	}
	if err != nil {
		s.sendError(req.Type, err)
	}
	return false
}

func (s *Server) handleScan(payload json.RawMessage) error {
	var p ScanPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	matches := s.scanner.ScanBytes(p.Content)
	if matches == nil {
		matches = []*types.Match{}
	}
	s.send("scan", ScanResult{Matches: matches})
	return nil
}

func (s *Server) handleOpen(payload json.RawMessage) error {
	p, err := decodeStream(payload)
	if err != nil {
		return err
	}
	if _, ok := s.streams[p.Stream]; ok {
		return fmt.Errorf("stream already open: %s", p.Stream)
	}
	s.streams[p.Stream] = s.scanner.NewStream()
	s.send("open", StreamResult{Stream: p.Stream})
	return nil
}

func (s *Server) handleFeed(payload json.RawMessage) error {
	var p FeedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	st, err := s.lookup(p.Stream)
	if err != nil {
		return err
	}
	s.send("feed", StreamResult{
		Stream:         p.Stream,
		Matches:        st.Feed(p.Data),
		BytesProcessed: st.BytesProcessed(),
	})
	return nil
}

func (s *Server) handleReset(payload json.RawMessage) error {
	p, err := decodeStream(payload)
	if err != nil {
		return err
	}
	st, err := s.lookup(p.Stream)
	if err != nil {
		return err
	}
	st.Reset()
	s.send("reset", StreamResult{Stream: p.Stream})
	return nil
}

func (s *Server) handleCloseStream(payload json.RawMessage) error {
	p, err := decodeStream(payload)
	if err != nil {
		return err
	}
	st, err := s.lookup(p.Stream)
	if err != nil {
		return err
	}
	delete(s.streams, p.Stream)
	s.send("close_stream", StreamResult{Stream: p.Stream, BytesProcessed: st.BytesProcessed()})
	return nil
}

func (s *Server) lookup(id string) (*pktmatch.Stream, error) {
	st, ok := s.streams[id]
	if !ok {
		return nil, fmt.Errorf("unknown stream: %s", id)
	}
	return st, nil
}

func decodeStream(payload json.RawMessage) (StreamPayload, error) {
	var p StreamPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return p, err
	}
	if p.Stream == "" {
		return p, errors.New("stream name is required")
	}
	return p, nil
}

func (s *Server) send(respType string, v any) {
	data, _ := json.Marshal(v)
	s.encoder.Encode(Response{
		Success: true,
		Type:    respType,
		Data:    data,
	})
}

func (s *Server) sendError(reqType string, err error) {
	s.encoder.Encode(Response{
		Success: false,
		Type:    reqType,
		Error:   err.Error(),
	})
}
