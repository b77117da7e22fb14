package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/BaSui01/workflowproc/dispatch"
	"github.com/BaSui01/workflowproc/types"
)

// newBuiltinRegistry wires the stock tool and operation set. Tools carry
// undo functions where a sensible inverse exists, so rollback workflows
// can compensate them.
func newBuiltinRegistry() *dispatch.Registry {
	reg := dispatch.NewRegistry()

	reg.RegisterTool("echo", echoTool)
	reg.RegisterTool("sleep", sleepTool)
	reg.RegisterTool("checksum", checksumTool)
	reg.RegisterTool("write_file", writeFileTool)
	reg.RegisterUndo("write_file", undoWriteFile)
	reg.RegisterTool("mkdir", mkdirTool)
	reg.RegisterUndo("mkdir", undoMkdir)

	reg.RegisterOperation("read", readOp)
	reg.RegisterOperation("write", writeOp)
	reg.RegisterOperation("append", appendOp)
	reg.RegisterOperation("delete", deleteOp)
	reg.RegisterOperation("stat", statOp)
	reg.RegisterOperation("checksum", checksumOp)

	return reg
}

// =============================================================================
// tools
// =============================================================================

func echoTool(_ context.Context, params map[string]any) (any, error) {
	return params["message"], nil
}

func sleepTool(ctx context.Context, params map[string]any) (any, error) {
	ms, err := intParam(params, "duration_ms")
	if err != nil {
		return nil, err
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return ms, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func checksumTool(_ context.Context, params map[string]any) (any, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	return fileChecksum(path)
}

func writeFileTool(_ context.Context, params map[string]any) (any, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	content, err := stringParam(params, "content")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, err
	}
	return len(content), nil
}

func undoWriteFile(_ context.Context, params map[string]any) (any, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	return nil, os.Remove(path)
}

func mkdirTool(_ context.Context, params map[string]any) (any, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return path, nil
}

func undoMkdir(_ context.Context, params map[string]any) (any, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	return nil, os.Remove(path)
}

// =============================================================================
// batch operations
// =============================================================================

func readOp(_ context.Context, filePath string, _ map[string]any) (any, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func writeOp(_ context.Context, filePath string, params map[string]any) (any, error) {
	content, err := stringParam(params, "content")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		return nil, err
	}
	return len(content), nil
}

func appendOp(_ context.Context, filePath string, params map[string]any) (any, error) {
	content, err := stringParam(params, "content")
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	n, err := f.WriteString(content)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func deleteOp(_ context.Context, filePath string, _ map[string]any) (any, error) {
	if err := os.Remove(filePath); err != nil {
		return nil, err
	}
	return filePath, nil
}

func statOp(_ context.Context, filePath string, _ map[string]any) (any, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"name":     info.Name(),
		"size":     info.Size(),
		"mode":     info.Mode().String(),
		"mod_time": info.ModTime().UTC().Format(time.RFC3339),
		"is_dir":   info.IsDir(),
	}, nil
}

func checksumOp(_ context.Context, filePath string, _ map[string]any) (any, error) {
	return fileChecksum(filePath)
}

// =============================================================================
// helpers
// =============================================================================

func fileChecksum(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func stringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", types.Errorf(types.ErrInvalidParameters, "missing required parameter %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", types.Errorf(types.ErrInvalidParameters, "parameter %q must be a string, got %T", key, v)
	}
	return s, nil
}

func intParam(params map[string]any, key string) (int, error) {
	v, ok := params[key]
	if !ok {
		return 0, types.Errorf(types.ErrInvalidParameters, "missing required parameter %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, types.Errorf(types.ErrInvalidParameters, "parameter %q must be a number, got %T", key, v)
	}
}
