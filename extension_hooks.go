package florin

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-florin/core"
	"github.com/goliatone/go-florin/stream"
)

type ChannelHandlerPack struct {
	Name     string
	Handlers map[string]stream.Handler
}

type CategoryRulePack struct {
	Name   string
	Locale string
	Rules  []core.CategoryRule
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

type ExtensionHooks struct {
	mu sync.RWMutex

	channelPacks map[string]ChannelHandlerPack
	rulePacks    map[string]CategoryRulePack
	bundles      map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		channelPacks: map[string]ChannelHandlerPack{},
		rulePacks:    map[string]CategoryRulePack{},
		bundles:      map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterChannelPack(pack ChannelHandlerPack) error {
	if h == nil {
		return fmt.Errorf("florin: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("florin: channel pack name is required")
	}
	if len(pack.Handlers) == 0 {
		return fmt.Errorf("florin: channel pack %q has no handlers", name)
	}

	handlers := make(map[string]stream.Handler, len(pack.Handlers))
	for messageType, handler := range pack.Handlers {
		handlers[messageType] = handler
	}
	normalized := ChannelHandlerPack{
		Name:     name,
		Handlers: handlers,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.channelPacks[name]; exists {
		return fmt.Errorf("florin: channel pack %q already registered", name)
	}
	h.channelPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCategoryRulePack(pack CategoryRulePack) error {
	if h == nil {
		return fmt.Errorf("florin: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	locale := strings.TrimSpace(strings.ToLower(pack.Locale))
	if name == "" {
		return fmt.Errorf("florin: category rule pack name is required")
	}
	if locale == "" {
		return fmt.Errorf("florin: category rule pack %q locale is required", name)
	}
	if len(pack.Rules) == 0 {
		return fmt.Errorf("florin: category rule pack %q has no rules", name)
	}

	normalized := CategoryRulePack{
		Name:   name,
		Locale: locale,
		Rules:  append([]core.CategoryRule(nil), pack.Rules...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.rulePacks[name]; exists {
		return fmt.Errorf("florin: category rule pack %q already registered", name)
	}
	h.rulePacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("florin: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("florin: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("florin: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("florin: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

func (h *ExtensionHooks) ApplyChannelPacks(dispatcher *stream.Dispatcher) error {
	if h == nil {
		return nil
	}
	if dispatcher == nil {
		return fmt.Errorf("florin: dispatcher is required")
	}

	packs := h.ChannelPacks()
	for _, pack := range packs {
		messageTypes := make([]string, 0, len(pack.Handlers))
		for messageType := range pack.Handlers {
			messageTypes = append(messageTypes, messageType)
		}
		sort.Strings(messageTypes)
		for _, messageType := range messageTypes {
			handler := pack.Handlers[messageType]
			if handler == nil {
				return fmt.Errorf("florin: channel pack %q contains nil handler", pack.Name)
			}
			if err := dispatcher.Register(messageType, handler); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("florin: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) ChannelPacks() []ChannelHandlerPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.channelPacks))
	for name := range h.channelPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ChannelHandlerPack, 0, len(names))
	for _, name := range names {
		pack := h.channelPacks[name]
		handlers := make(map[string]stream.Handler, len(pack.Handlers))
		for messageType, handler := range pack.Handlers {
			handlers[messageType] = handler
		}
		out = append(out, ChannelHandlerPack{
			Name:     pack.Name,
			Handlers: handlers,
		})
	}
	return out
}

func (h *ExtensionHooks) CategoryRules(locale string) []core.CategoryRule {
	if h == nil {
		return nil
	}
	locale = strings.TrimSpace(strings.ToLower(locale))
	h.mu.RLock()
	defer h.mu.RUnlock()

	packNames := make([]string, 0, len(h.rulePacks))
	for name, pack := range h.rulePacks {
		if pack.Locale == locale {
			packNames = append(packNames, name)
		}
	}
	sort.Strings(packNames)

	out := []core.CategoryRule{}
	for _, name := range packNames {
		pack := h.rulePacks[name]
		out = append(out, pack.Rules...)
	}
	return append([]core.CategoryRule(nil), out...)
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
