package translate

import (
	"context"

	"github.com/llmrelay/llmrelay/pkg/account"
	"github.com/llmrelay/llmrelay/pkg/envelope"
	"github.com/llmrelay/llmrelay/pkg/lang"
)

// TranslateRequest rewrites every user-authored message in body from zh to
// en. If acct is nil or translation is disabled, body is returned unchanged
// by reference (identity, not a copy) — the caller must not mutate it.
// Otherwise a deep copy is returned with only user text blocks rewritten;
// assistant and system messages, and non-text blocks, are left untouched.
func TranslateRequest(ctx context.Context, svc *Service, body envelope.Envelope, acct *account.Account) envelope.Envelope {
	if acct == nil || !acct.Enabled() {
		return body
	}

	out := body.Clone()
	source := firstNonEmpty(acct.TranslationSourceLang, "zh")
	target := firstNonEmpty(acct.TranslationTargetLang, "en")

	for i := range out.Messages {
		msg := &out.Messages[i]
		if msg.Role != envelope.RoleUser {
			continue
		}
		translateContent(ctx, svc, &msg.Content, source, target)
	}
	return out
}

func translateContent(ctx context.Context, svc *Service, content *envelope.Content, source, target string) {
	if content.IsString {
		content.Text = translateUserText(ctx, svc, content.Text, source, target)
		return
	}
	for i := range content.Blocks {
		block := &content.Blocks[i]
		if block.Type != envelope.BlockText {
			continue
		}
		block.Text = translateUserText(ctx, svc, block.Text, source, target)
	}
}

// translateUserText is the request-side text sub-pipeline: skip anything
// with no Chinese characters, protect code spans, translate, restore.
func translateUserText(ctx context.Context, svc *Service, text, source, target string) string {
	return TranslateText(ctx, svc, text, source, target, lang.ContainsChinese)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
