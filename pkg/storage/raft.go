package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	skyerrors "github.com/sky-shift/skyshift-sub001/pkg/errors"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// opKind is the Raft log command opcode (mirrors the teacher's
// pkg/manager/fsm.go Command.Op convention, generalized to a single generic
// KV command set instead of one opcode per typed entity).
type opKind string

const (
	opWrite  opKind = "write"
	opUpdate opKind = "update"
	opDelete opKind = "delete"
)

// command is one Raft log entry.
type command struct {
	Op              opKind `json:"op"`
	Key             string `json:"key"`
	Value           []byte `json:"value,omitempty"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

// applyResult is what storeFSM.Apply returns for every command; RaftStore
// type-asserts raft's ApplyFuture.Response() back to this.
type applyResult struct {
	Version int64
	Value   []byte
	err     error
}

// storeFSM applies committed Raft log entries to the underlying BoltDB KV and
// publishes a WatchEvent for every successful mutation. This is the
// generalization of the teacher's WarrenFSM (pkg/manager/fsm.go): one opcode
// per generic KV verb instead of one pair of opcodes per typed entity, since
// the Object Store never interprets the bytes it stores (spec.md §4.1).
type storeFSM struct {
	mu     sync.Mutex
	kv     *kv
	broker *broker
}

func newStoreFSM(kv *kv, broker *broker) *storeFSM {
	return &storeFSM{kv: kv, broker: broker}
}

func (f *storeFSM) Apply(log *raft.Log) interface{} {
	var cmd command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return applyResult{err: skyerrors.Fatal(fmt.Errorf("decode command: %w", err))}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	case opWrite:
		return f.applyWrite(cmd)
	case opUpdate:
		return f.applyUpdate(cmd)
	case opDelete:
		return f.applyDelete(cmd)
	default:
		return applyResult{err: skyerrors.Fatal(fmt.Errorf("unknown op %q", cmd.Op))}
	}
}

func (f *storeFSM) applyWrite(cmd command) applyResult {
	existing, err := f.kv.get(cmd.Key)
	if err != nil {
		return applyResult{err: err}
	}
	version := int64(1)
	if existing != nil {
		version = existing.Version + 1
	}
	if err := f.kv.put(cmd.Key, record{Value: cmd.Value, Version: version}); err != nil {
		return applyResult{err: err}
	}
	kind := EventAdd
	if version > 1 {
		kind = EventUpdate
	}
	f.broker.publish(Event{Kind: kind, Key: cmd.Key, Value: cmd.Value, Version: version})
	return applyResult{Version: version, Value: cmd.Value}
}

func (f *storeFSM) applyUpdate(cmd command) applyResult {
	existing, err := f.kv.get(cmd.Key)
	if err != nil {
		return applyResult{err: err}
	}
	if existing == nil {
		return applyResult{err: skyerrors.NotFound(cmd.Key)}
	}
	if cmd.ExpectedVersion != nil && *cmd.ExpectedVersion != existing.Version {
		return applyResult{err: skyerrors.Conflict(cmd.Key, existing.Version)}
	}
	version := existing.Version + 1
	if err := f.kv.put(cmd.Key, record{Value: cmd.Value, Version: version}); err != nil {
		return applyResult{err: err}
	}
	f.broker.publish(Event{Kind: EventUpdate, Key: cmd.Key, Value: cmd.Value, Version: version})
	return applyResult{Version: version, Value: cmd.Value}
}

func (f *storeFSM) applyDelete(cmd command) applyResult {
	existing, err := f.kv.get(cmd.Key)
	if err != nil {
		return applyResult{err: err}
	}
	if existing == nil {
		return applyResult{err: skyerrors.NotFound(cmd.Key)}
	}
	if err := f.kv.del(cmd.Key); err != nil {
		return applyResult{err: err}
	}
	f.broker.publish(Event{Kind: EventDelete, Key: cmd.Key, Value: existing.Value, Version: existing.Version})
	return applyResult{Version: existing.Version, Value: existing.Value}
}

// fsmSnapshot and fsmSnapshot.Persist/Release implement raft.FSMSnapshot by
// dumping every key under the objects bucket, the same whole-state-dump
// approach as the teacher's WarrenSnapshot.
type fsmSnapshot struct {
	entries []Entry
}

func (f *storeFSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.kv.scanPrefix("")
	if err != nil {
		return nil, err
	}
	return &fsmSnapshot{entries: entries}, nil
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s.entries); err != nil {
			return err
		}
		return sink.Close()
	}()
	if err != nil {
		sink.Cancel()
	}
	return err
}

func (s *fsmSnapshot) Release() {}

func (f *storeFSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	var entries []Entry
	if err := json.NewDecoder(rc).Decode(&entries); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		if err := f.kv.put(e.Key, record{Value: e.Value, Version: e.Version}); err != nil {
			return fmt.Errorf("restore %s: %w", e.Key, err)
		}
	}
	return nil
}

// RaftStore is the Store implementation: a single-node (by default) Raft
// group applying commands to a BoltDB-backed KV, with an in-process watch
// broker. Multi-peer operation is supported by raft.BootstrapCluster with
// additional voters, but SkyShift does not exercise replication topology
// beyond the single-node path (spec.md §1 Non-goals).
type RaftStore struct {
	kv     *kv
	broker *broker
	raft   *raft.Raft
	dir    string
}

// Config controls how a RaftStore is opened.
type Config struct {
	NodeID  string
	DataDir string
	Bind    string // e.g. "127.0.0.1:7890"; used for the Raft transport
}

// NewRaftStore opens (or creates) a single-node Raft-backed object store at
// cfg.DataDir. It blocks briefly while the node elects itself leader.
func NewRaftStore(cfg Config) (*RaftStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	kvStore, err := openKV(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	b := newBroker()
	fsm := newStoreFSM(kvStore, b)

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)

	snapshots, err := raft.NewFileSnapshotStore(filepath.Join(cfg.DataDir, "snapshots"), 2, os.Stderr)
	if err != nil {
		kvStore.close()
		return nil, fmt.Errorf("snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-log.db"))
	if err != nil {
		kvStore.close()
		return nil, fmt.Errorf("raft log store: %w", err)
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-stable.db"))
	if err != nil {
		kvStore.close()
		return nil, fmt.Errorf("raft stable store: %w", err)
	}

	addr, err := resolveTCPAddr(cfg.Bind)
	if err != nil {
		kvStore.close()
		return nil, err
	}
	transport, err := raft.NewTCPTransport(cfg.Bind, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		kvStore.close()
		return nil, fmt.Errorf("raft transport: %w", err)
	}

	r, err := raft.NewRaft(raftCfg, fsm, logStore, stableStore, snapshots, transport)
	if err != nil {
		kvStore.close()
		return nil, fmt.Errorf("start raft: %w", err)
	}

	hasState, err := raft.HasExistingState(logStore, stableStore, snapshots)
	if err != nil {
		return nil, err
	}
	if !hasState {
		bootstrap := raft.Configuration{
			Servers: []raft.Server{{ID: raftCfg.LocalID, Address: transport.LocalAddr()}},
		}
		if err := r.BootstrapCluster(bootstrap).Error(); err != nil {
			return nil, fmt.Errorf("bootstrap raft: %w", err)
		}
	}

	return &RaftStore{kv: kvStore, broker: b, raft: r, dir: cfg.DataDir}, nil
}

func (s *RaftStore) apply(cmd command) (applyResult, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return applyResult{}, err
	}
	future := s.raft.Apply(data, 10*time.Second)
	if err := future.Error(); err != nil {
		return applyResult{}, skyerrors.Transient(fmt.Errorf("raft apply: %w", err))
	}
	resp, ok := future.Response().(applyResult)
	if !ok {
		return applyResult{}, skyerrors.Fatal(fmt.Errorf("unexpected apply response type %T", future.Response()))
	}
	if resp.err != nil {
		return applyResult{}, resp.err
	}
	return resp, nil
}

func (s *RaftStore) Write(ctx context.Context, key string, value []byte) (int64, error) {
	resp, err := s.apply(command{Op: opWrite, Key: key, Value: value})
	if err != nil {
		return 0, err
	}
	return resp.Version, nil
}

func (s *RaftStore) Update(ctx context.Context, key string, value []byte, expectedVersion *int64) (int64, error) {
	resp, err := s.apply(command{Op: opUpdate, Key: key, Value: value, ExpectedVersion: expectedVersion})
	if err != nil {
		return 0, err
	}
	return resp.Version, nil
}

func (s *RaftStore) Read(ctx context.Context, key string) ([]byte, int64, error) {
	rec, err := s.kv.get(key)
	if err != nil {
		return nil, 0, err
	}
	if rec == nil {
		return nil, 0, skyerrors.NotFound(key)
	}
	return rec.Value, rec.Version, nil
}

func (s *RaftStore) ReadPrefix(ctx context.Context, prefix string) ([]Entry, error) {
	return s.kv.scanPrefix(prefix)
}

func (s *RaftStore) Delete(ctx context.Context, key string) ([]byte, int64, error) {
	resp, err := s.apply(command{Op: opDelete, Key: key})
	if err != nil {
		return nil, 0, err
	}
	return resp.Value, resp.Version, nil
}

func (s *RaftStore) DeletePrefix(ctx context.Context, prefix string) ([]Entry, error) {
	entries, err := s.kv.scanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	removed := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, _, err := s.Delete(ctx, e.Key); err != nil {
			return removed, err
		}
		removed = append(removed, e)
	}
	return removed, nil
}

func (s *RaftStore) Watch(ctx context.Context, prefix string) (<-chan Event, CancelFunc, error) {
	ch, unsub := s.broker.subscribe(prefix)
	cancel := CancelFunc(func() { unsub() })
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}

func (s *RaftStore) Close() error {
	if s.raft != nil {
		_ = s.raft.Shutdown().Error()
	}
	s.broker.close()
	return s.kv.close()
}

// IsLeader reports whether this node currently holds Raft leadership.
func (s *RaftStore) IsLeader() bool {
	return s.raft.State() == raft.Leader
}
