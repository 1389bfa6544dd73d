package florin

import (
	"context"
	"testing"

	"github.com/goliatone/go-florin/core"
	"github.com/goliatone/go-florin/stream"
)

func TestExtensionHooks_RegisterAndApplyChannelPacks(t *testing.T) {
	hooks := NewExtensionHooks()
	handled := false
	pack := ChannelHandlerPack{
		Name: "downstream-pack",
		Handlers: map[string]stream.Handler{
			"transaction.created": func(context.Context, core.ChannelMessage) error {
				handled = true
				return nil
			},
		},
	}
	if err := hooks.RegisterChannelPack(pack); err != nil {
		t.Fatalf("register channel pack: %v", err)
	}
	if err := hooks.RegisterChannelPack(pack); err == nil {
		t.Fatalf("expected duplicate channel pack registration error")
	}

	dispatcher := stream.NewDispatcher()
	if err := hooks.ApplyChannelPacks(dispatcher); err != nil {
		t.Fatalf("apply channel packs: %v", err)
	}
	if err := dispatcher.Dispatch(context.Background(), core.ChannelMessage{Type: "transaction.created"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !handled {
		t.Fatalf("expected channel pack handler registration in dispatcher")
	}
}

func TestExtensionHooks_CategoryRulesAndBundles(t *testing.T) {
	hooks := NewExtensionHooks()
	if err := hooks.RegisterCategoryRulePack(CategoryRulePack{
		Name:   "pack_b",
		Locale: "en-US",
		Rules: []core.CategoryRule{
			{Pattern: "starbucks", Category: "coffee"},
		},
	}); err != nil {
		t.Fatalf("register category rule pack b: %v", err)
	}
	if err := hooks.RegisterCategoryRulePack(CategoryRulePack{
		Name:   "pack_a",
		Locale: "en-US",
		Rules: []core.CategoryRule{
			{Pattern: "safeway", Category: "groceries"},
		},
	}); err != nil {
		t.Fatalf("register category rule pack a: %v", err)
	}
	rules := hooks.CategoryRules("en-US")
	if len(rules) != 2 {
		t.Fatalf("expected two category rules, got %d", len(rules))
	}
	if rules[0].Category != "groceries" || rules[1].Category != "coffee" {
		t.Fatalf("expected deterministic rule pack ordering, got %#v", rules)
	}
	if other := hooks.CategoryRules("de-DE"); len(other) != 0 {
		t.Fatalf("expected no rules for unregistered locale, got %#v", other)
	}

	if err := hooks.RegisterCommandQueryBundle("budgeting_bundle", func(service CommandQueryService) (any, error) {
		return map[string]any{
			"create_transaction_fn": service.CreateTransaction,
			"get_budget_fn":         service.GetBudget,
		}, nil
	}); err != nil {
		t.Fatalf("register bundle: %v", err)
	}
	if err := hooks.RegisterCommandQueryBundle("budgeting_bundle", func(CommandQueryService) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate bundle registration error")
	}

	svc := &stubFacadeService{}
	bundles, err := hooks.BuildCommandQueryBundles(svc)
	if err != nil {
		t.Fatalf("build bundles: %v", err)
	}
	if len(bundles) != 1 {
		t.Fatalf("expected one bundle, got %d", len(bundles))
	}
	if _, ok := bundles["budgeting_bundle"]; !ok {
		t.Fatalf("expected budgeting_bundle entry in built bundles")
	}
}
