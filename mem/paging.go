package mem

import (
	"errors"
	"fmt"
	"os"
	"sync"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/cs-emu/csopesy/proc"
)

// ErrDeadlock is returned by Paging when every occupied frame belongs to a
// PCB currently bound to a core: no frame can be safely evicted, so the
// fault can't be serviced (spec §4.3 step 3, the paging liveness guard).
var ErrDeadlock = errors.New("mem: paging deadlock: every frame is owned by a running process")

// LivenessChecker lets Paging ask whether a process currently occupies a
// core, without importing the scheduler (which itself imports mem). The
// scheduler's process table implements this.
type LivenessChecker interface {
	IsRunning(processName string) bool
}

// pageEntry is one virtual page's bookkeeping, per spec §3's page table
// fields: frame_or_none, in_memory, dirty, last_access_tick.
type pageEntry struct {
	Frame          int // -1 when not resident
	InMemory       bool
	Dirty          bool
	LastAccessTick uint64
}

// Paging is a demand-paged virtual memory manager. Frame occupancy, the
// valid/dirty bits, and the free-or-LRU victim search are delegated to an
// Akita cache directory with one fully-associative set spanning every
// frame, so FindVictim performs a true global-LRU search exactly like
// cache.Cache.handleMiss's miss path (timing/cache/cache.go) - the
// difference here is the liveness guard layered on top of that search,
// since a page frame backing a Running process can't be evicted the way a
// plain cache line can.
type Paging struct {
	mu sync.Mutex

	frameSize   int // bytes per frame, == bytes per page
	totalFrames int

	directory *akitacache.DirectoryImpl
	frameData [][]byte // indexed by WayID, mirrors dataStore in timing/cache

	frameOwner      []string // "" when free
	framePage       []int    // valid only when frameOwner != ""
	frameLastAccess []uint64
	accessCounter   uint64 // monotonic, incremented on every page-in and reference

	pagesIn, pagesOut uint64

	pageTables map[string][]pageEntry // by process name

	backing  *BackingStore
	liveness LivenessChecker
}

// NewPaging builds a paging manager over totalBytes of physical memory cut
// into frames of frameSize bytes each. liveness answers "is this process
// on a core right now" for the deadlock guard.
func NewPaging(totalBytes, frameSize int, backing *BackingStore, liveness LivenessChecker) *Paging {
	totalFrames := totalBytes / frameSize

	frameData := make([][]byte, totalFrames)
	for i := range frameData {
		frameData[i] = make([]byte, frameSize)
	}

	return &Paging{
		frameSize:   frameSize,
		totalFrames: totalFrames,
		directory: akitacache.NewDirectory(
			1, // one set: associativity alone spans every frame, for global LRU
			totalFrames,
			frameSize,
			akitacache.NewLRUVictimFinder(),
		),
		frameData:       frameData,
		frameOwner:      make([]string, totalFrames),
		framePage:       make([]int, totalFrames),
		frameLastAccess: make([]uint64, totalFrames),
		pageTables:      make(map[string][]pageEntry),
		backing:         backing,
		liveness:        liveness,
	}
}

func (pg *Paging) pageCount(p *proc.PCB) int {
	n := (p.MemoryRequirement + pg.frameSize - 1) / pg.frameSize
	if n < 1 {
		n = 1
	}
	return n
}

// tag folds a process id and page number into the single uint64 address
// space the directory indexes on, matching how cache.Cache folds a
// byte address into a block-aligned Tag.
func tag(pid int, page int) uint64 {
	return uint64(uint32(pid))<<32 | uint64(uint32(page))
}

// Allocate creates p's page table (all pages initially non-resident).
// Frames are only claimed lazily, on first fault (spec §4.3: allocation
// reserves address space, not physical frames). It refuses when p already
// has a page table or needs more pages than there are frames.
func (pg *Paging) Allocate(p *proc.PCB) bool {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if _, exists := pg.pageTables[p.Name]; exists {
		return false
	}

	n := pg.pageCount(p)
	if n > pg.totalFrames {
		return false // could never be resident even alone: refuse up front
	}

	table := make([]pageEntry, n)
	for i := range table {
		table[i] = pageEntry{Frame: -1}
	}
	pg.pageTables[p.Name] = table
	return true
}

// Deallocate frees every frame p holds and drops its page table.
func (pg *Paging) Deallocate(p *proc.PCB) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	table := pg.pageTables[p.Name]
	for _, entry := range table {
		if entry.Frame < 0 {
			continue
		}
		pg.frameOwner[entry.Frame] = ""
		block := pg.block(entry.Frame)
		block.IsValid = false
		block.IsDirty = false
	}
	delete(pg.pageTables, p.Name)
}

// Read and Write translate a process-virtual byte address into its
// resident frame, faulting the owning page in first if necessary.
func (pg *Paging) Read(p *proc.PCB, addr int) (uint16, error) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	frame, offset, err := pg.resolve(p, addr)
	if err != nil {
		return 0, err
	}
	data := pg.frameData[frame]
	return uint16(data[offset]) | uint16(data[offset+1])<<8, nil
}

func (pg *Paging) Write(p *proc.PCB, addr int, value uint16) error {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	frame, offset, err := pg.resolve(p, addr)
	if err != nil {
		return err
	}
	data := pg.frameData[frame]
	data[offset] = byte(value)
	data[offset+1] = byte(value >> 8)

	block := pg.block(frame)
	block.IsDirty = true
	table := pg.pageTables[p.Name]
	table[pg.framePage[frame]].Dirty = true
	return nil
}

// resolve returns the physical frame and in-frame byte offset backing
// addr, faulting the page in if it isn't resident. Caller holds pg.mu.
func (pg *Paging) resolve(p *proc.PCB, addr int) (frame, offset int, err error) {
	if addr < 0 || !IsEven(addr) {
		return 0, 0, &ViolationError{AddressLiteral: fmt.Sprintf("0x%X", addr)}
	}

	table := pg.pageTables[p.Name]
	page := addr / pg.frameSize
	offset = addr % pg.frameSize
	if page >= len(table) || offset+1 >= pg.frameSize {
		return 0, 0, &ViolationError{AddressLiteral: fmt.Sprintf("0x%X", addr)}
	}

	entry := &table[page]
	if !entry.InMemory {
		f, err := pg.fault(p, page)
		if err != nil {
			if errors.Is(err, ErrDeadlock) {
				// Spec §7 item 6: a paging deadlock escalates to a memory
				// violation for the faulting PCB rather than hanging it.
				return 0, 0, &ViolationError{AddressLiteral: fmt.Sprintf("0x%X", addr), Cause: err}
			}
			return 0, 0, err
		}
		entry.Frame = f
		entry.InMemory = true
	}

	pg.accessCounter++
	entry.LastAccessTick = pg.accessCounter
	pg.frameLastAccess[entry.Frame] = pg.accessCounter
	pg.directory.Visit(pg.block(entry.Frame))

	return entry.Frame, offset, nil
}

// fault services a page fault for (p, page): it finds a frame via the
// directory's victim search, applies the liveness guard before evicting
// anything occupied, writes back a dirty victim, and loads the requested
// page from the backing store. Caller holds pg.mu.
func (pg *Paging) fault(p *proc.PCB, page int) (int, error) {
	victim := pg.directory.FindVictim(tag(p.ID, page))
	if victim == nil {
		return 0, fmt.Errorf("mem: no victim frame available")
	}

	if victim.IsValid && pg.liveness.IsRunning(pg.frameOwner[victim.WayID]) {
		alt, ok := pg.evictableFrame()
		if !ok {
			return 0, ErrDeadlock
		}
		victim = pg.block(alt)
	}

	if victim.IsValid {
		pg.evict(victim)
	}

	data := pg.backing.Load(Key(p.Name, page), pg.frameSize/2)
	frameBytes := pg.frameData[victim.WayID]
	for i, w := range data {
		frameBytes[2*i] = byte(w)
		frameBytes[2*i+1] = byte(w >> 8)
	}
	pg.pagesIn++

	victim.Tag = tag(p.ID, page)
	victim.IsValid = true
	victim.IsDirty = false
	pg.frameOwner[victim.WayID] = p.Name
	pg.framePage[victim.WayID] = page

	return victim.WayID, nil
}

// evictableFrame finds the occupied frame with the lowest last-access tick
// among frames NOT owned by a currently-running process. Returns ok=false
// when every occupied frame is running-owned (the deadlock case).
func (pg *Paging) evictableFrame() (int, bool) {
	best := -1
	for i, owner := range pg.frameOwner {
		if owner == "" || pg.liveness.IsRunning(owner) {
			continue
		}
		if best < 0 || pg.frameLastAccess[i] < pg.frameLastAccess[best] {
			best = i
		}
	}
	return best, best >= 0
}

// evict writes back a dirty victim block and marks its old page
// non-resident. Caller holds pg.mu.
func (pg *Paging) evict(victim *akitacache.Block) {
	owner := pg.frameOwner[victim.WayID]
	page := pg.framePage[victim.WayID]

	if victim.IsDirty {
		data := pg.frameData[victim.WayID]
		words := make([]uint16, pg.frameSize/2)
		for i := range words {
			words[i] = uint16(data[2*i]) | uint16(data[2*i+1])<<8
		}
		_ = pg.backing.Save(Key(owner, page), words)
		pg.pagesOut++
	}

	if table, ok := pg.pageTables[owner]; ok && page < len(table) {
		table[page].InMemory = false
		table[page].Frame = -1
	}
}

// block returns the directory's Block for way index i. With one set,
// WayID alone identifies the frame.
func (pg *Paging) block(way int) *akitacache.Block {
	return pg.directory.GetSets()[0].Blocks[way]
}

// Snapshot writes a frame table grouped by owner, matching the shape of
// Contiguous.Snapshot so both managers back the same reporter.
func (pg *Paging) Snapshot(filename string) error {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	var sb []byte
	used := 0
	for i, owner := range pg.frameOwner {
		if owner == "" {
			continue
		}
		used++
		sb = append(sb, fmt.Appendf(nil, "frame %d: %s page %d\n", i, owner, pg.framePage[i])...)
	}
	sb = append(sb, fmt.Appendf(nil, "Frames in use: %d/%d\n", used, pg.totalFrames)...)

	return os.WriteFile(filename, sb, 0o644)
}

func (pg *Paging) UsedBytes() int {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	used := 0
	for _, owner := range pg.frameOwner {
		if owner != "" {
			used++
		}
	}
	return used * pg.frameSize
}

func (pg *Paging) TotalBytes() int { return pg.totalFrames * pg.frameSize }

// Stats reports cumulative page-in/page-out counts for vmstat.
func (pg *Paging) Stats() (pagedIn, pagedOut uint64) {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	return pg.pagesIn, pg.pagesOut
}
