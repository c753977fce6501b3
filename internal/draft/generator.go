package draft

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/linnemanlabs/scribe/internal/classify"
	"github.com/linnemanlabs/scribe/internal/knowledge"
)

// Reply modes. Diagnostic replies gather data, explanatory replies inform,
// policy replies state policy.
const (
	ModeDiagnostic  = "diagnostic"
	ModeExplanatory = "explanatory"
	ModePolicy      = "policy"
)

// Knowledge injection is gated hard: only these intents, only explanatory
// mode, and only above minKnowledgeConfidence. Shipping gets the block up
// front; everyone else gets it after the draft.
var (
	allowedKnowledgeIntents = map[classify.Intent]bool{
		classify.IntentSetupHelp:      true,
		classify.IntentShippingStatus: true,
	}
	knowledgePrependIntents = map[classify.Intent]bool{
		classify.IntentShippingStatus: true,
	}
)

const (
	minKnowledgeConfidence = 0.65
	maxKnowledgeChars      = 600
)

// genericOpeners fail the acceptance gate on concrete intents: a reply that
// could open any ticket is not answering this one.
var genericOpeners = []string{
	"thanks for the details",
	"thanks for reaching out",
	"let's narrow this down",
	"lets narrow this down",
	"happy to help",
}

// deriveMode resolves the reply mode from the classified intent.
func deriveMode(intent classify.Intent) string {
	switch intent {
	case classify.IntentShippingStatus, "purchase_inquiry", classify.IntentFirmwareUpdate,
		classify.IntentGeneralQuestion:
		return ModeExplanatory
	case classify.IntentSetupHelp, classify.IntentSyncDelay, classify.IntentNotHashing,
		classify.IntentFirmwareIssue, classify.IntentPerformanceIssue:
		return ModeDiagnostic
	case classify.IntentWarrantyRMA:
		return ModePolicy
	default:
		return ModeDiagnostic
	}
}

// baselineDraft is the deterministic per-intent draft used when no template
// applies and the LLM is unavailable or rejected. The customer always gets
// substantive text.
func baselineDraft(intent classify.Intent, subject string) string {
	switch intent {
	case classify.IntentShippingStatus:
		return "Here's an update on shipping.\n\n" +
			"If you can share your order number (or the email used at checkout), " +
			"I can check the latest status and whether tracking has been issued."

	case classify.IntentSetupHelp:
		return "Let's get you into the dashboard.\n\n" +
			"If apollo.local doesn't load, the next step is to find the Apollo's IP address " +
			"from your router and open that IP in a browser on the same network. " +
			"Is the device wired or on Wi-Fi?"

	case classify.IntentNotHashing:
		return "If the miner isn't hashing, the first thing to confirm is whether the node is fully synced.\n\n" +
			"Does the dashboard show the node as fully synced, and do you see any error message on the Miner page?"

	case classify.IntentSyncDelay:
		return "Initial sync can take a while.\n\n" +
			"If block height is still increasing, it's usually working normally. " +
			"What block height do you currently see, and is it moving over time?"

	case classify.IntentFirmwareIssue:
		return "Sorry the update isn't behaving.\n\n" +
			"Could you tell me what the dashboard shows right now, and whether the device " +
			"responds at all when you power-cycle it?"

	case classify.IntentFirmwareUpdate:
		return "You can update the firmware from the dashboard under Settings > System > Check for Updates.\n\n" +
			"The device downloads the update and reboots itself; the whole process usually takes under ten minutes."

	case classify.IntentPerformanceIssue:
		return "Restarts and thermal behavior are worth pinning down before changing anything.\n\n" +
			"Could you share the ambient temperature where the unit sits and whether the fan " +
			"noise changed recently?"

	case classify.IntentWarrantyRMA:
		return "Every unit is covered by a one-year limited warranty.\n\n" +
			"To open a claim we need your order number and a short description of the fault, " +
			"and the team will send return instructions within one business day."

	case classify.IntentGeneralQuestion:
		return "Good question.\n\n" +
			"The Apollo runs a full Bitcoin node alongside its miner, and most behavior questions " +
			"come down to which of the two you're asking about. Let me know which side you mean " +
			"and I'll give you the full picture."

	case "purchase_inquiry":
		return "Absolutely, I can help.\n\n" +
			"What are you looking to order (Apollo miner or Solo Node), and do you prefer " +
			"the fastest shipping option or best value/performance?"
	}

	if subj := strings.TrimSpace(subject); subj != "" {
		return fmt.Sprintf("Thanks for reaching out about: %q.\n\n"+
			"What outcome are you hoping for so I can point you in the right direction?", subj)
	}
	return "Could you share a bit more detail on what you're trying to do so I can help?"
}

// scaffoldDraft is the skeleton produced for vague tickets: the agent fills
// in the blanks.
func scaffoldDraft(subject string) string {
	subj := strings.TrimSpace(subject)
	if subj == "" {
		subj = "your request"
	}
	return fmt.Sprintf("Hi there,\n\n"+
		"Thanks for contacting support regarding: %q\n\n"+
		"[Agent: confirm what the customer is trying to achieve]\n\n"+
		"Could you provide a bit more detail about what you're seeing or what you expected to happen? "+
		"Once I have that, I'll be able to assist more effectively.\n\n"+
		"Best regards,\nFutureBit Support", subj)
}

// systemPrompt is the single LLM instruction used for proactive drafts.
const systemPrompt = "You are a calm, professional customer support agent.\n" +
	"Answer the customer's message as helpfully and completely as possible.\n\n" +
	"If you need more information to proceed, ask ONE clear follow-up question.\n" +
	"If you do NOT need more information, provide a complete answer."

// acceptanceFailures applies the hard draft-quality rules. Any failure
// forbids auto-send and marks the draft as fallback.
func acceptanceFailures(draftText string, intent classify.Intent, mode string) []string {
	var failures []string
	lowered := strings.ToLower(draftText)

	// Generic openers are fine for informational intents where a stock
	// opening is the honest answer; concrete intents must engage.
	if intent != classify.IntentUnknownVague && intent != "" {
		switch intent {
		case classify.IntentShippingStatus, classify.IntentFirmwareUpdate, "purchase_inquiry":
		default:
			if hasGenericOpener(draftText) {
				failures = append(failures, "generic_opener")
			}
		}
	}

	if mode == ModeDiagnostic && !strings.Contains(draftText, "?") {
		failures = append(failures, "diagnostic_no_questions")
	}

	if mode == ModeExplanatory &&
		intent != classify.IntentShippingStatus && intent != classify.IntentFirmwareUpdate {
		for _, word := range []string{"step", "check", "try", "restart", "reboot"} {
			if strings.Contains(lowered, word) {
				failures = append(failures, "explanatory_contains_troubleshooting")
				break
			}
		}
	}

	return failures
}

func hasGenericOpener(draftText string) bool {
	if strings.TrimSpace(draftText) == "" {
		return true
	}
	firstLine := strings.ToLower(strings.SplitN(strings.TrimSpace(draftText), "\n", 2)[0])
	for _, opener := range genericOpeners {
		if strings.Contains(firstLine, opener) {
			return true
		}
	}
	return false
}

// injectKnowledge adds a capped knowledge block to the draft when the gates
// allow it. Returns the (possibly unchanged) text and whether injection
// happened.
func injectKnowledge(draftText string, intent classify.Intent, mode string,
	confidence float64, kr knowledge.Result) (string, bool) {

	if !allowedKnowledgeIntents[intent] || mode != ModeExplanatory || confidence < minKnowledgeConfidence {
		return draftText, false
	}
	if len(kr.SourcesConsulted) == 0 || kr.Coverage == knowledge.CoverageNone {
		return draftText, false
	}

	var lines []string
	for _, s := range kr.SourcesConsulted {
		if excerpt := strings.TrimSpace(s.Excerpt); excerpt != "" {
			lines = append(lines, "- "+excerpt)
		}
	}
	if len(lines) == 0 {
		return draftText, false
	}

	body := strings.Join(lines, "\n\n")
	if len(body) > maxKnowledgeChars {
		cut := maxKnowledgeChars
		// Back up to a rune boundary so the cap never splits a character.
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	block := "Here's some helpful information that may be useful:\n\n" + body

	if knowledgePrependIntents[intent] {
		return block + "\n\n" + draftText, true
	}
	return draftText + "\n\n" + block, true
}
