package repository

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// respServer speaks just enough RESP for GET, SET and DEL.
type respServer struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]string
}

func startRESPServer(t *testing.T) (*respServer, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() }) //nolint:errcheck

	srv := &respServer{data: map[string]string{}, ttl: map[string]string{}}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.serve(conn)
		}
	}()
	return srv, ln.Addr().String()
}

func (s *respServer) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		if _, err := io.WriteString(conn, s.exec(args)); err != nil {
			return
		}
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, "*") {
		return nil, fmt.Errorf("unexpected frame %q", line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line[1:]))
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		head, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimSpace(head[1:]))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func (s *respServer) exec(args []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch strings.ToLower(args[0]) {
	case "get":
		val, ok := s.data[args[1]]
		if !ok {
			return "$-1\r\n"
		}
		return fmt.Sprintf("$%d\r\n%s\r\n", len(val), val)
	case "set":
		s.data[args[1]] = args[2]
		if len(args) >= 5 {
			s.ttl[args[1]] = strings.ToLower(args[3]) + " " + args[4]
		}
		return "+OK\r\n"
	case "del":
		deleted := 0
		for _, k := range args[1:] {
			if _, ok := s.data[k]; ok {
				delete(s.data, k)
				deleted++
			}
		}
		return fmt.Sprintf(":%d\r\n", deleted)
	}
	return "-ERR unknown command '" + args[0] + "'\r\n"
}

func (s *respServer) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.data[key]
	return val, ok
}

func (s *respServer) put(key, val string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = val
}

func newTestCache(t *testing.T, addr string) CacheRepository {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: time.Second,
		ReadTimeout: time.Second,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() }) //nolint:errcheck
	return NewCacheRepository(client, "sensorgrid:")
}

type cachedBatch struct {
	BatchID string `json:"batchId"`
	Sensors []int  `json:"sensors"`
}

func TestCacheRepositoryGetJSON(t *testing.T) {
	srv, addr := startRESPServer(t)
	cache := newTestCache(t, addr)
	ctx := context.Background()

	srv.put("sensorgrid:corrupt", "{not json")

	tests := []struct {
		name      string
		key       string
		wantFound bool
		wantErr   bool
	}{
		{"missing key is a miss", "latest", false, false},
		{"undecodable value", "corrupt", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got cachedBatch
			found, err := cache.GetJSON(ctx, tt.key, &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, redis.Nil) {
				t.Errorf("GetJSON() leaked redis.Nil")
			}
			if found != tt.wantFound {
				t.Errorf("GetJSON() found = %v, want %v", found, tt.wantFound)
			}
		})
	}
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	srv, addr := startRESPServer(t)
	cache := newTestCache(t, addr)
	ctx := context.Background()

	want := cachedBatch{BatchID: "b-1", Sensors: []int{1, 2, 3}}
	if err := cache.SetJSON(ctx, "latest", want, time.Minute); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}

	raw, ok := srv.get("sensorgrid:latest")
	if !ok {
		t.Fatal("value not stored under the prefixed key")
	}
	if !strings.Contains(raw, `"batchId":"b-1"`) {
		t.Errorf("stored value = %s", raw)
	}
	srv.mu.Lock()
	ttl := srv.ttl["sensorgrid:latest"]
	srv.mu.Unlock()
	if ttl != "ex 60" {
		t.Errorf("expiry = %q, want \"ex 60\"", ttl)
	}

	var got cachedBatch
	found, err := cache.GetJSON(ctx, "latest", &got)
	if err != nil || !found {
		t.Fatalf("GetJSON() = %v, %v", found, err)
	}
	if got.BatchID != want.BatchID || len(got.Sensors) != 3 {
		t.Errorf("GetJSON() = %+v, want %+v", got, want)
	}

	if err := cache.Delete(ctx, "latest"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	found, err = cache.GetJSON(ctx, "latest", &got)
	if err != nil || found {
		t.Errorf("GetJSON() after Delete = %v, %v, want miss", found, err)
	}

	// Deleting a missing key is not an error.
	if err := cache.Delete(ctx, "latest"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestCacheRepositoryErrors(t *testing.T) {
	_, addr := startRESPServer(t)
	cache := newTestCache(t, addr)
	ctx := context.Background()

	if err := cache.SetJSON(ctx, "latest", make(chan int), time.Minute); err == nil {
		t.Error("SetJSON() of unencodable value succeeded")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	deadAddr := ln.Addr().String()
	ln.Close() //nolint:errcheck

	down := newTestCache(t, deadAddr)
	var got cachedBatch
	found, err := down.GetJSON(ctx, "latest", &got)
	if err == nil {
		t.Fatal("GetJSON() against a closed port succeeded")
	}
	if found {
		t.Error("GetJSON() reported found on a connection error")
	}
}
