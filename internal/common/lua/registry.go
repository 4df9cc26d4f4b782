package lua

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"
	"golang.org/x/sync/errgroup"
)

// Script: Registry 에 등록되는 Lua 스크립트 정의
type Script struct {
	Name     string
	Source   string
	ReadOnly bool
	NoSHA    bool
}

// Registry: 이름으로 Lua 스크립트를 찾아 실행한다.
type Registry struct {
	scripts map[string]*valkey.Lua
	sources map[string]string
}

// NewRegistry: 스크립트 목록으로 Registry 를 생성한다.
func NewRegistry(scripts []Script) *Registry {
	registry := &Registry{
		scripts: make(map[string]*valkey.Lua, len(scripts)),
		sources: make(map[string]string, len(scripts)),
	}
	for _, script := range scripts {
		registry.scripts[script.Name] = buildLua(script)
		if !script.NoSHA {
			registry.sources[script.Name] = script.Source
		}
	}
	return registry
}

// Exec: 등록된 스크립트를 실행한다. Redis 오류는 ValkeyResult.Error()로 확인한다.
func (r *Registry) Exec(ctx context.Context, client valkey.Client, name string, keys []string, args []string) (valkey.ValkeyResult, error) {
	if r == nil {
		return valkey.ValkeyResult{}, fmt.Errorf("lua registry is nil")
	}
	if client == nil {
		return valkey.ValkeyResult{}, fmt.Errorf("valkey client is nil")
	}
	script, ok := r.scripts[name]
	if !ok {
		return valkey.ValkeyResult{}, fmt.Errorf("unknown lua script: %s", name)
	}
	return script.Exec(ctx, client, keys, args), nil
}

// Preload: 등록된 스크립트를 SCRIPT LOAD 로 모든 노드에 병렬 적재한다.
func (r *Registry) Preload(ctx context.Context, client valkey.Client) error {
	if r == nil {
		return fmt.Errorf("lua registry is nil")
	}
	if client == nil {
		return fmt.Errorf("valkey client is nil")
	}

	nodes := client.Nodes()
	if len(nodes) == 0 {
		nodes = map[string]valkey.Client{"default": client}
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, source := range r.sources {
		for _, node := range nodes {
			g.Go(func() error {
				cmd := node.B().ScriptLoad().Script(source).Build()
				if err := node.Do(gctx, cmd).Error(); err != nil {
					return fmt.Errorf("lua preload failed (%s): %w", name, err)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("lua preload: %w", err)
	}
	return nil
}

func buildLua(script Script) *valkey.Lua {
	switch {
	case script.NoSHA && script.ReadOnly:
		return valkey.NewLuaScriptReadOnlyNoSha(script.Source)
	case script.NoSHA:
		return valkey.NewLuaScriptNoSha(script.Source)
	case script.ReadOnly:
		return valkey.NewLuaScriptReadOnly(script.Source)
	default:
		return valkey.NewLuaScript(script.Source)
	}
}
