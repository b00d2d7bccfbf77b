// Package session holds the mutable per-session context shared across
// worker invocations: uploaded artifacts, long-term memory, and the vector
// store handles.
package session

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"mcsagent/internal/knowledge"
)

// MemoryNotFound is the documented sentinel returned when a memory key is
// absent. Tools return it as text instead of raising.
const MemoryNotFound = "Memory not found."

// Context is the runtime context for one session. It is created once per
// session, mutated by tool calls, and replaced wholesale on reset. Store
// handles live here rather than in serialized graph state because they are
// not safely serializable.
type Context struct {
	mu sync.RWMutex

	// OperatorID identifies the human operator driving the session.
	OperatorID string

	// SessionID keys message accumulation across turns. A reset issues a
	// new one.
	SessionID string

	// SDKDocs maps doc name to uploaded SDK documentation text.
	SDKDocs map[string]string

	// FrameworkFiles maps filename to uploaded framework file content.
	FrameworkFiles map[string]string

	// Memory is key-value long-term memory.
	Memory map[string]string

	// Metadata carries miscellaneous per-session values.
	Metadata map[string]any

	// Store is the persistent knowledge store handle, opened lazily.
	Store knowledge.VectorStore

	// TempStore is the ephemeral per-session store, rebuilt wholesale on
	// each creation call.
	TempStore knowledge.VectorStore
}

// New creates a fresh session context with a new session id.
func New(operatorID string) *Context {
	return &Context{
		OperatorID:     operatorID,
		SessionID:      uuid.NewString(),
		SDKDocs:        make(map[string]string),
		FrameworkFiles: make(map[string]string),
		Memory:         make(map[string]string),
		Metadata:       make(map[string]any),
	}
}

// SaveMemory stores a key-value pair in long-term memory.
func (c *Context) SaveMemory(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Memory[key] = value
}

// ReadMemory returns the value for key, or the MemoryNotFound sentinel.
func (c *Context) ReadMemory(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.Memory[key]; ok {
		return v
	}
	return MemoryNotFound
}

// ListMemories returns all memory keys, sorted.
func (c *Context) ListMemories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.Memory))
	for k := range c.Memory {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AddSDKDoc stores uploaded SDK documentation under a name.
func (c *Context) AddSDKDoc(name, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SDKDocs[name] = content
}

// AddFrameworkFile stores an uploaded framework file.
func (c *Context) AddFrameworkFile(filename, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FrameworkFiles[filename] = content
}

// ArtifactNames returns the sorted SDK doc and framework file names.
func (c *Context) ArtifactNames() (sdkDocs, frameworkFiles []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for k := range c.SDKDocs {
		sdkDocs = append(sdkDocs, k)
	}
	for k := range c.FrameworkFiles {
		frameworkFiles = append(frameworkFiles, k)
	}
	sort.Strings(sdkDocs)
	sort.Strings(frameworkFiles)
	return sdkDocs, frameworkFiles
}

// SDKDoc returns the named uploaded SDK doc.
func (c *Context) SDKDoc(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.SDKDocs[name]
	return v, ok
}

// FrameworkFile returns the named uploaded framework file.
func (c *Context) FrameworkFile(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.FrameworkFiles[name]
	return v, ok
}

// Artifacts returns a copy of all uploaded artifacts, SDK docs and
// framework files merged, keyed by name.
func (c *Context) Artifacts() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.SDKDocs)+len(c.FrameworkFiles))
	for k, v := range c.SDKDocs {
		out[k] = v
	}
	for k, v := range c.FrameworkFiles {
		out[k] = v
	}
	return out
}

// SetMetadata stores a metadata value.
func (c *Context) SetMetadata(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Metadata[key] = value
}
