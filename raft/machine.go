// Package raft implements the consensus step function: a single-threaded,
// non-reentrant state machine that consumes Input values and produces
// Output side effects. It does no I/O of its own — sending messages,
// persisting entries, and applying committed entries to a state machine
// are all the embedder's job, driven by the Output values a Step call
// returns.
package raft

import (
	"sort"
	"time"

	"github.com/lattice-raft/raft/internal/compressedlog"
	"github.com/lattice-raft/raft/internal/log"
	"github.com/lattice-raft/raft/raftpb"
)

// Role is which of the three raft roles a Machine currently occupies.
type Role uint8

const (
	RoleCandidate Role = iota
	RoleFollower
	RoleLeader
)

func (r Role) String() string {
	switch r {
	case RoleCandidate:
		return "candidate"
	case RoleFollower:
		return "follower"
	case RoleLeader:
		return "leader"
	default:
		return "unknown"
	}
}

type termIndexKey struct {
	term  raftpb.Term
	index raftpb.Index
}

type matchEntry struct {
	index  raftpb.Index
	readID raftpb.ReadID
}

// matchLess reports whether a is ordered before b under the (index,
// readID) lexicographic ordering ackTermIndex uses to pick the
// majority-confirmed value.
func matchLess(a, b matchEntry) bool {
	if a.index != b.index {
		return a.index < b.index
	}
	return a.readID < b.readID
}

type readEntry struct {
	index  raftpb.Index
	readID raftpb.ReadID
	req    *ReadReq // nil once the ReadStateMachineReq for it has been issued
	future *ReadFuture
}

// Machine is one raft node's local state. It starts as a Candidate, the
// same way the original does: a freshly created node immediately runs
// for election rather than waiting out a first timeout as a Follower.
type Machine struct {
	id  raftpb.NodeID
	cfg Config
	log *compressedlog.CompressedLog

	nodes []raftpb.NodeID

	currentTerm raftpb.Term
	votedFor    *raftpb.NodeID
	commitIndex raftpb.Index
	lastApplied raftpb.Index

	currentTime       time.Time
	lastCommunication time.Time

	role Role

	// Candidate
	receivedVotes int

	// Follower
	leaderHint *raftpb.NodeID

	// Leader
	matchIndex           map[raftpb.NodeID]matchEntry
	nextIndex            map[raftpb.NodeID]raftpb.Index
	writeBuffer          map[termIndexKey]*WriteFuture
	readBuffer           []*readEntry
	nextReadID           raftpb.ReadID
	maxOutstandingReadID *raftpb.ReadID
	maxConfirmedReadID   *raftpb.ReadID
}

// New creates a Machine for id among nodes (which must include id) and
// immediately starts its first election, appending the RequestVote
// broadcast to out.
func New(id raftpb.NodeID, nodes []raftpb.NodeID, opts ...Option) (*Machine, []Output) {
	m := &Machine{
		id:    id,
		cfg:   newConfig(opts...),
		log:   compressedlog.New(),
		nodes: append([]raftpb.NodeID(nil), nodes...),
		role:  RoleCandidate,
	}
	var out []Output
	m.startElection(&out)
	return m, out
}

func (m *Machine) majority() int { return len(m.nodes)/2 + 1 }

// Role reports the node's current role.
func (m *Machine) Role() Role { return m.role }

// Debug renders the node's role and term for logging.
func (m *Machine) Debug() string {
	return m.role.String() + " " + m.currentTerm.String()
}

// Step feeds input into the machine and returns whatever side effects it
// produced. Not safe for concurrent use: callers must serialize Step
// calls on a given Machine themselves (typically via a single goroutine
// owning it).
func (m *Machine) Step(input Input) []Output {
	var out []Output
	switch in := input.(type) {
	case InputWrite:
		m.write(&out, in.Req, in.Future)
	case InputRead:
		m.read(&out, in.Req, in.Future)
	case InputTick:
		m.tick(&out, in.Now)
	case InputMessage:
		m.message(&out, in.Message)
	case InputPersistRes:
		m.persistRes(&out, in.Res)
	case InputReadStateMachineRes:
		m.readStateMachineRes(&out, in.Res)
	case InputReadLogRes:
		m.readLogRes(&out, in.Res)
	default:
		log.Warnf("raft: unhandled input type %T", input)
	}
	return out
}

// Shutdown fails every outstanding write and read with NotLeaderError.
// The original relies on Drop to do this implicitly; Go has no
// destructor, so the embedder calls this explicitly before discarding a
// Machine.
func (m *Machine) Shutdown() {
	if m.role == RoleLeader {
		m.clearOutstandingRequests(nil)
	}
}

// --- client entry points ---

type pendingWrite struct {
	payload []byte
	future  *WriteFuture
}

func (m *Machine) write(out *[]Output, req WriteReq, future *WriteFuture) {
	switch m.role {
	case RoleLeader:
		m.leaderWrite(out, []pendingWrite{{req.Payload, future}})
	case RoleCandidate:
		if m.votedFor != nil {
			if future != nil {
				future.fill(WriteRes{}, &NotLeaderError{Hint: m.votedFor})
			}
			return
		}
		m.startElection(out)
		m.write(out, req, future)
	case RoleFollower:
		if future != nil {
			future.fill(WriteRes{}, &NotLeaderError{Hint: m.leaderHint})
		}
	}
}

func (m *Machine) read(out *[]Output, req ReadReq, future *ReadFuture) {
	switch m.role {
	case RoleLeader:
		m.leaderRead(out, req, future)
	case RoleCandidate:
		if m.votedFor != nil {
			if future != nil {
				future.fill(ReadRes{}, &NotLeaderError{Hint: m.votedFor})
			}
			return
		}
		m.startElection(out)
		m.read(out, req, future)
	case RoleFollower:
		if future != nil {
			future.fill(ReadRes{}, &NotLeaderError{Hint: m.leaderHint})
		}
	}
}

// tick drives timers. currentTime doubles as both the election-timeout
// and heartbeat-interval clock (the same overload the original has);
// calling it with a time not after the last one observed is a no-op.
func (m *Machine) tick(out *[]Output, now time.Time) {
	if !m.currentTime.IsZero() && !now.After(m.currentTime) {
		return
	}
	elapsed := m.lastCommunication.IsZero() || now.Sub(m.lastCommunication) >= m.timeoutFor(m.role)
	m.currentTime = now
	if !elapsed {
		return
	}
	switch m.role {
	case RoleCandidate:
		m.startElection(out)
	case RoleFollower:
		m.followerConvertToCandidate(out)
	case RoleLeader:
		m.leaderHeartbeat(out)
	}
}

func (m *Machine) timeoutFor(r Role) time.Duration {
	if r == RoleLeader {
		return m.cfg.HeartbeatInterval
	}
	return m.cfg.ElectionTimeout
}

func (m *Machine) persistRes(out *[]Output, res PersistRes) {
	msg := raftpb.NewAppendEntriesResMessage(m.id, res.LeaderID, raftpb.AppendEntriesRes{
		Term:    m.currentTerm,
		Success: true,
		Index:   res.LogIndex,
		ReadID:  res.ReadID,
	})
	m.message(out, msg)
}

func (m *Machine) readStateMachineRes(out *[]Output, res ReadStateMachineRes) {
	if m.role != RoleLeader {
		return
	}
	for i, e := range m.readBuffer {
		if e.index == res.Index && e.readID == res.ReadID {
			e.future.fill(ReadRes{Term: m.currentTerm, Index: res.Index, Payload: res.Payload}, nil)
			m.readBuffer = append(m.readBuffer[:i], m.readBuffer[i+1:]...)
			break
		}
	}
	m.leaderMaybeApply(out)
}

func (m *Machine) readLogRes(out *[]Output, res ReadLogRes) {
	if m.role != RoleLeader {
		return
	}
	prevIndex := res.FromIndex - 1
	prevTerm, _ := m.log.IndexTerm(prevIndex)
	req := raftpb.AppendEntriesReq{
		Term:         m.currentTerm,
		LeaderID:     m.id,
		PrevLogIndex: prevIndex,
		PrevLogTerm:  prevTerm,
		LeaderCommit: m.commitIndex,
		Entries:      res.Entries,
	}
	*out = append(*out, OutputMessage{raftpb.NewAppendEntriesReqMessage(m.id, res.Dest, req)})
}

// --- message dispatch ---

func messageTerm(msg raftpb.Message) raftpb.Term {
	switch msg.Kind {
	case raftpb.PayloadAppendEntriesReq:
		return msg.AppendEntriesReq.Term
	case raftpb.PayloadAppendEntriesRes:
		return msg.AppendEntriesRes.Term
	case raftpb.PayloadRequestVoteReq:
		return msg.RequestVoteReq.Term
	case raftpb.PayloadRequestVoteRes:
		return msg.RequestVoteRes.Term
	case raftpb.PayloadStartElectionReq:
		return msg.StartElectionReq.Term
	default:
		return 0
	}
}

func (m *Machine) message(out *[]Output, msg raftpb.Message) {
	if term := messageTerm(msg); term > m.currentTerm {
		m.currentTerm = term
		m.votedFor = nil
		hint := msg.Src
		m.convertToFollower(out, &hint)
	}
	switch m.role {
	case RoleCandidate:
		m.candidateStep(out, msg)
	case RoleFollower:
		m.followerStep(out, msg)
	case RoleLeader:
		m.leaderStep(out, msg)
	}
}

func (m *Machine) candidateStep(out *[]Output, msg raftpb.Message) {
	switch msg.Kind {
	case raftpb.PayloadRequestVoteRes:
		m.candidateProcessRequestVoteRes(out, *msg.RequestVoteRes)
	case raftpb.PayloadAppendEntriesReq:
		if msg.AppendEntriesReq.Term > m.currentTerm {
			hint := msg.Src
			m.candidateConvertToFollower(&hint)
			m.message(out, msg)
		}
		// A same-term AppendEntries reaching a candidate (another node also
		// believes it's leader for this term) is ignored, as upstream does.
	case raftpb.PayloadRequestVoteReq:
		m.processRequestVote(out, *msg.RequestVoteReq)
	case raftpb.PayloadStartElectionReq:
		if msg.StartElectionReq.Term >= m.currentTerm {
			m.startElection(out)
		}
	default:
		log.Debugf("raft: candidate ignoring %v", msg)
	}
}

func (m *Machine) followerStep(out *[]Output, msg raftpb.Message) {
	switch msg.Kind {
	case raftpb.PayloadAppendEntriesReq:
		m.followerAppendEntries(out, *msg.AppendEntriesReq)
	case raftpb.PayloadRequestVoteReq:
		m.processRequestVote(out, *msg.RequestVoteReq)
	case raftpb.PayloadStartElectionReq:
		if msg.StartElectionReq.Term >= m.currentTerm {
			m.followerConvertToCandidate(out)
		}
	default:
		// AppendEntriesRes/RequestVoteRes reaching a follower are stale
		// replies to requests this node no longer cares about.
	}
}

func (m *Machine) leaderStep(out *[]Output, msg raftpb.Message) {
	switch msg.Kind {
	case raftpb.PayloadAppendEntriesRes:
		m.leaderAppendEntriesRes(out, msg.Src, *msg.AppendEntriesRes)
	default:
		// RequestVoteRes/StartElectionReq reaching a leader are stale or
		// from a node that hasn't learned about this term yet; ignore.
	}
}

func (m *Machine) followerAppendEntries(out *[]Output, req raftpb.AppendEntriesReq) {
	if req.Term < m.currentTerm {
		m.sendTo(out, req.LeaderID, raftpb.AppendEntriesRes{Term: m.currentTerm, Success: false})
		return
	}
	m.lastCommunication = m.currentTime
	m.leaderHint = &req.LeaderID

	term, ok := m.log.IndexTerm(req.PrevLogIndex)
	if !ok || term != req.PrevLogTerm {
		m.sendTo(out, req.LeaderID, raftpb.AppendEntriesRes{Term: m.currentTerm, Success: false})
		return
	}

	if len(req.Entries) > 0 {
		m.log.Extend(req.Entries)
		*out = append(*out, OutputPersistReq{PersistReq{LeaderID: req.LeaderID, ReadID: req.ReadID, Entries: req.Entries}})
	} else {
		m.sendTo(out, req.LeaderID, raftpb.AppendEntriesRes{
			Term: m.currentTerm, Success: true, Index: req.PrevLogIndex, ReadID: req.ReadID,
		})
	}

	if req.LeaderCommit > m.commitIndex {
		if last := m.log.Last().Index; req.LeaderCommit < last {
			m.commitIndex = req.LeaderCommit
		} else {
			m.commitIndex = last
		}
		m.followerMaybeApply(out)
	}
}

func (m *Machine) sendTo(out *[]Output, dest raftpb.NodeID, res raftpb.AppendEntriesRes) {
	*out = append(*out, OutputMessage{raftpb.NewAppendEntriesResMessage(m.id, dest, res)})
}

func (m *Machine) leaderAppendEntriesRes(out *[]Output, src raftpb.NodeID, res raftpb.AppendEntriesRes) {
	if res.Success {
		m.ackTermIndex(out, src, res.Index, res.ReadID)
		if next := res.Index + 1; m.nextIndex[src] < next {
			m.nextIndex[src] = next
		}
		return
	}
	next := m.nextIndex[src]
	if next == 0 {
		next = res.Index + 1
	}
	if next > 1 {
		next--
	}
	m.nextIndex[src] = next
	*out = append(*out, OutputReadLogReq{ReadLogReq{Dest: src, FromIndex: next}})
}

// --- elections ---

func (m *Machine) processRequestVote(out *[]Output, req raftpb.RequestVoteReq) {
	if m.cfg.PreVoteGuard && m.role == RoleFollower && !m.lastCommunication.IsZero() &&
		!m.currentTime.IsZero() && m.currentTime.Sub(m.lastCommunication) < m.cfg.ElectionTimeout {
		return
	}
	if req.Term < m.currentTerm {
		*out = append(*out, OutputMessage{raftpb.NewRequestVoteResMessage(m.id, req.CandidateID, raftpb.RequestVoteRes{
			Term: m.currentTerm, VoteGranted: false,
		})})
		return
	}
	if m.votedFor != nil && *m.votedFor != req.CandidateID {
		return
	}
	candidate := req.CandidateID
	m.votedFor = &candidate
	*out = append(*out, OutputMessage{raftpb.NewRequestVoteResMessage(m.id, req.CandidateID, raftpb.RequestVoteRes{
		Term: m.currentTerm, VoteGranted: true,
	})})
}

func (m *Machine) candidateProcessRequestVoteRes(out *[]Output, res raftpb.RequestVoteRes) {
	if !res.VoteGranted {
		return
	}
	m.receivedVotes++
	if m.receivedVotes >= m.majority() {
		m.candidateConvertToLeader(out)
	}
}

func (m *Machine) startElection(out *[]Output) {
	m.receivedVotes = 0
	self := m.id
	m.votedFor = &self
	m.currentTerm++
	m.lastCommunication = m.currentTime

	last := m.log.Last()
	req := raftpb.RequestVoteReq{
		Term: m.currentTerm, CandidateID: m.id, LastLogIndex: last.Index, LastLogTerm: last.Term,
	}
	m.broadcast(out, func(dest raftpb.NodeID) raftpb.Message {
		return raftpb.NewRequestVoteReqMessage(m.id, dest, req)
	})
	m.candidateProcessRequestVoteRes(out, raftpb.RequestVoteRes{Term: m.currentTerm, VoteGranted: true})
}

func (m *Machine) broadcast(out *[]Output, build func(dest raftpb.NodeID) raftpb.Message) {
	for _, n := range m.nodes {
		if n == m.id {
			continue
		}
		*out = append(*out, OutputMessage{build(n)})
	}
}

// --- role transitions ---

func (m *Machine) convertToFollower(out *[]Output, hint *raftpb.NodeID) {
	switch m.role {
	case RoleCandidate:
		m.candidateConvertToFollower(hint)
	case RoleLeader:
		m.leaderConvertToFollower(out, hint)
	case RoleFollower:
		m.leaderHint = hint
	}
}

func (m *Machine) candidateConvertToFollower(hint *raftpb.NodeID) {
	m.role = RoleFollower
	m.leaderHint = hint
}

func (m *Machine) leaderConvertToFollower(out *[]Output, hint *raftpb.NodeID) {
	m.clearOutstandingRequests(hint)
	m.role = RoleFollower
	m.leaderHint = hint
}

func (m *Machine) followerConvertToCandidate(out *[]Output) {
	m.role = RoleCandidate
	m.receivedVotes = 0
	m.startElection(out)
}

func (m *Machine) candidateConvertToLeader(out *[]Output) {
	m.role = RoleLeader
	last := m.log.Last()
	m.matchIndex = make(map[raftpb.NodeID]matchEntry)
	m.nextIndex = make(map[raftpb.NodeID]raftpb.Index)
	for _, n := range m.nodes {
		m.nextIndex[n] = last.Index + 1
	}
	m.writeBuffer = make(map[termIndexKey]*WriteFuture)
	m.readBuffer = nil
	m.nextReadID = 0
	m.maxOutstandingReadID = nil
	m.maxConfirmedReadID = nil
	m.leaderHeartbeat(out)
}

// clearOutstandingRequests fails every buffered write and read, used when
// a leader steps down and can no longer promise to complete them.
func (m *Machine) clearOutstandingRequests(hint *raftpb.NodeID) {
	for key, future := range m.writeBuffer {
		future.fill(WriteRes{}, &NotLeaderError{Hint: hint})
		delete(m.writeBuffer, key)
	}
	for _, e := range m.readBuffer {
		e.future.fill(ReadRes{}, &NotLeaderError{Hint: hint})
	}
	m.readBuffer = nil
}

// --- leader replication & reads ---

func (m *Machine) leaderHeartbeat(out *[]Output) {
	m.leaderWrite(out, nil)
}

func (m *Machine) leaderWrite(out *[]Output, pending []pendingWrite) {
	last := m.log.Last()
	readID := m.nextReadID
	m.nextReadID++
	ro := readID
	m.maxOutstandingReadID = &ro

	entries := make([]raftpb.Entry, len(pending))
	for i, p := range pending {
		e := raftpb.Entry{Term: m.currentTerm, Index: last.Index.Add(uint64(i + 1)), Payload: p.payload}
		entries[i] = e
		if p.future != nil {
			m.writeBuffer[termIndexKey{e.Term, e.Index}] = p.future
		}
	}
	if len(entries) > 0 {
		m.log.Extend(entries)
		*out = append(*out, OutputPersistReq{PersistReq{LeaderID: m.id, ReadID: readID, Entries: entries}})
	} else {
		m.ackTermIndex(out, m.id, last.Index, readID)
	}

	req := raftpb.AppendEntriesReq{
		Term: m.currentTerm, LeaderID: m.id, PrevLogIndex: last.Index, PrevLogTerm: last.Term,
		LeaderCommit: m.commitIndex, ReadID: readID, Entries: entries,
	}
	m.broadcast(out, func(dest raftpb.NodeID) raftpb.Message {
		return raftpb.NewAppendEntriesReqMessage(m.id, dest, req)
	})
}

func (m *Machine) leaderRead(out *[]Output, req ReadReq, future *ReadFuture) {
	readID := m.nextReadID
	m.nextReadID++
	index := m.log.Last().Index
	e := &readEntry{index: index, readID: readID, req: &req, future: future}
	pos := sort.Search(len(m.readBuffer), func(i int) bool {
		return !matchLess(matchEntry{m.readBuffer[i].index, m.readBuffer[i].readID}, matchEntry{index, readID})
	})
	m.readBuffer = append(m.readBuffer, nil)
	copy(m.readBuffer[pos+1:], m.readBuffer[pos:])
	m.readBuffer[pos] = e
	m.leaderMaybeAdvanceReads(out)
}

// ackTermIndex records that src has confirmed replication through index
// with read id readID, then re-evaluates whether the commit index or any
// linearizable read can advance as a result.
func (m *Machine) ackTermIndex(out *[]Output, src raftpb.NodeID, index raftpb.Index, readID raftpb.ReadID) {
	next := matchEntry{index, readID}
	if cur, ok := m.matchIndex[src]; !ok || matchLess(cur, next) {
		m.matchIndex[src] = next
	}

	readIDs := make([]raftpb.ReadID, 0, len(m.matchIndex))
	for _, e := range m.matchIndex {
		readIDs = append(readIDs, e.readID)
	}
	sort.Slice(readIDs, func(i, j int) bool { return readIDs[i] < readIDs[j] })
	if len(readIDs) >= m.majority() {
		confirmed := readIDs[len(readIDs)-m.majority()]
		if m.maxOutstandingReadID != nil && confirmed >= *m.maxOutstandingReadID {
			m.maxOutstandingReadID = nil
		}
		c := confirmed
		m.maxConfirmedReadID = &c
		m.leaderMaybeAdvanceReads(out)
	}

	for it := m.log.Iter(); ; {
		if !it.Prev() {
			break
		}
		v := it.Value()
		if v.Index <= m.commitIndex {
			break
		}
		count := 0
		for _, e := range m.matchIndex {
			if e.index >= v.Index {
				count++
			}
		}
		if count >= m.majority() {
			m.commitIndex = v.Index
			m.leaderMaybeApply(out)
			m.maybeWakeWrites()
			m.leaderMaybeAdvanceReads(out)
			break
		}
	}
}

func (m *Machine) maybeWakeWrites() {
	for key, future := range m.writeBuffer {
		if key.index <= m.commitIndex {
			future.fill(WriteRes{Term: key.term, Index: key.index}, nil)
			delete(m.writeBuffer, key)
		}
	}
}

func (m *Machine) maybeApply(out *[]Output, upperBound *raftpb.Index) {
	newApplied := m.commitIndex
	if upperBound != nil && *upperBound < newApplied {
		newApplied = *upperBound
	}
	if newApplied > m.lastApplied {
		m.lastApplied = newApplied
		*out = append(*out, OutputApplyReq{Index: m.lastApplied})
	}
}

func (m *Machine) leaderMaybeApply(out *[]Output) {
	var bound *raftpb.Index
	if len(m.readBuffer) > 0 {
		idx := m.readBuffer[0].index
		bound = &idx
	}
	m.maybeApply(out, bound)
}

func (m *Machine) followerMaybeApply(out *[]Output) {
	m.maybeApply(out, nil)
}

func (m *Machine) leaderMaybeAdvanceReads(out *[]Output) {
	if len(m.readBuffer) == 0 {
		return
	}
	maxReadID := m.readBuffer[len(m.readBuffer)-1].readID
	needHeartbeat := (m.maxConfirmedReadID == nil || maxReadID > *m.maxConfirmedReadID) &&
		(m.maxOutstandingReadID == nil || maxReadID > *m.maxOutstandingReadID)
	if needHeartbeat {
		m.leaderHeartbeat(out)
	}

	var confirmedReadID raftpb.ReadID
	if m.maxConfirmedReadID != nil {
		confirmedReadID = *m.maxConfirmedReadID
	}
	canServe := matchEntry{m.lastApplied, confirmedReadID}
	for _, e := range m.readBuffer {
		if e.req == nil {
			continue
		}
		if matchLess(matchEntry{e.index, e.readID}, canServe) || (matchEntry{e.index, e.readID}) == canServe {
			*out = append(*out, OutputReadStateMachineReq{ReadStateMachineReq{
				Index: e.index, ReadID: e.readID, Payload: e.req.Payload,
			}})
			e.req = nil
		}
	}
}
