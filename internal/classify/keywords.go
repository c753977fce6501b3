package classify

// intentRule holds the keyword sets scored for one intent. All matching is
// case-insensitive substring matching over the normalized text.
type intentRule struct {
	intent         Intent
	triggerPhrases []string
	strongSignals  []string
	weakSignals    []string
}

// intentRules is ordered by triage priority: when two intents tie, the one
// declared first wins. Do not reorder without revisiting the tie-break tests.
var intentRules = []intentRule{
	{
		intent: IntentWarrantyRMA,
		triggerPhrases: []string{
			"want a refund",
			"request refund",
			"return policy",
			"warranty claim",
			"rma request",
			"defective unit",
			"doesn't work at all",
			"broken on arrival",
			"dead on arrival",
			"doa",
		},
		strongSignals: []string{
			"refund", "return", "warranty", "rma",
			"defective", "broken", "exchange", "replacement",
		},
		weakSignals: []string{
			"policy", "covered", "guarantee",
		},
	},
	{
		intent: IntentShippingStatus,
		triggerPhrases: []string{
			"where is my order",
			"where's my order",
			"track my order",
			"shipping status",
			"delivery status",
			"when will it arrive",
			"when will it ship",
			"order hasn't arrived",
			"package hasn't arrived",
			"tracking number",
		},
		strongSignals: []string{
			"shipment", "delivery", "tracking", "shipped",
			"fedex", "ups", "usps", "eta", "estimated delivery",
			"order status",
		},
		weakSignals: []string{
			"order", "package", "waiting", "arrived", "receive",
		},
	},
	{
		intent: IntentFirmwareIssue,
		triggerPhrases: []string{
			"firmware update failed",
			"firmware won't update",
			"ui won't load",
			"web interface won't load",
			"can't access interface",
			"device bricked",
			"screen is black",
			"won't boot",
			"stuck on boot",
		},
		strongSignals: []string{
			"update failed", "ui frozen",
			"interface frozen", "unresponsive", "bricked",
			"won't start", "won't boot",
		},
		weakSignals: []string{
			"update", "interface", "ui", "screen", "load",
		},
	},
	{
		intent: IntentNotHashing,
		triggerPhrases: []string{
			"0 h/s",
			"zero hashrate",
			"not hashing",
			"stopped mining",
			"stopped hashing",
			"no hashrate",
			"hashrate is zero",
			"no shares accepted",
			"shares not submitting",
			"worker not found",
			"not mining",
		},
		strongSignals: []string{
			"mining stopped", "no shares",
			"shares rejected", "hashrate dropped", "hashrate zero",
			"can't mine", "won't mine",
		},
		weakSignals: []string{
			"hashrate", "mining", "shares", "h/s",
		},
	},
	{
		intent: IntentSyncDelay,
		triggerPhrases: []string{
			"stuck syncing",
			"stuck at block",
			"sync stuck",
			"not syncing",
			"sync stopped",
			"syncing slowly",
			"sync taking forever",
			"blockchain won't sync",
			"node stuck",
		},
		strongSignals: []string{
			"sync", "syncing", "synchronizing", "blockchain",
			"block height", "downloading blocks", "verification",
			"blocks behind",
		},
		weakSignals: []string{
			"block", "progress", "loading",
		},
	},
	{
		intent: IntentPerformanceIssue,
		triggerPhrases: []string{
			"keeps restarting",
			"keeps rebooting",
			"keeps crashing",
			"overheating",
			"too hot",
			"fans are loud",
			"fans running full speed",
			"unstable",
			"intermittent",
		},
		strongSignals: []string{
			"restarting", "rebooting", "crashing", "hot",
			"temperature", "fan noise", "loud fan",
			"random restarts", "disconnecting",
		},
		weakSignals: []string{
			"restart", "crash", "fan", "noise", "temperature",
		},
	},
	{
		intent: IntentSetupHelp,
		triggerPhrases: []string{
			"how do i set up",
			"how to set up",
			"how do i configure",
			"first time setup",
			"getting started",
			"can't access web interface",
			"can't connect to apollo.local",
			"pool configuration",
			"how do i connect to pool",
			"setup guide",
		},
		strongSignals: []string{
			"setup", "configure", "configuration", "web interface",
			"apollo.local", "pool settings", "pool url", "worker name",
			"first time", "brand new",
		},
		weakSignals: []string{
			"how do i", "how to", "instructions", "guide", "tutorial",
		},
	},
	{
		intent: IntentGeneralQuestion,
		triggerPhrases: []string{
			"what is",
			"how does",
			"can you explain",
			"what's the difference between",
			"how do i know if",
			"is it normal",
			"should i",
		},
		strongSignals: []string{
			"question about", "wondering", "curious",
			"understand", "explain", "difference", "mean",
		},
		weakSignals: []string{
			"how", "why", "what", "when",
		},
	},
}

// safetyTable marks intents whose handling touches device behavior as unsafe;
// everything else (informational intents) defaults to safe.
var safetyTable = map[Intent]SafetyMode{
	IntentShippingStatus:   SafetySafe,
	IntentSetupHelp:        SafetySafe,
	IntentFirmwareUpdate:   SafetySafe,
	IntentGeneralQuestion:  SafetySafe,
	IntentWarrantyRMA:      SafetySafe,
	IntentNotHashing:       SafetyUnsafe,
	IntentSyncDelay:        SafetyUnsafe,
	IntentFirmwareIssue:    SafetyUnsafe,
	IntentPerformanceIssue: SafetyUnsafe,
	IntentUnknownVague:     SafetySafe,
}

// Tone keyword buckets, checked in precedence order.
var (
	panicKeywords       = []string{"urgent", "asap", "emergency", "immediately", "losing money"}
	frustrationKeywords = []string{"still not working", "again", "multiple times", "frustrated"}
	confusionKeywords   = []string{"confused", "don't understand", "unclear", "not sure"}
)

// attemptedActionPatterns maps already-tried phrasing to action categories.
var attemptedActionPatterns = []struct {
	action   Action
	patterns []string
}{
	{ActionRestart, []string{
		"already tried restarting", "already restarted", "tried restarting",
		"i restarted", "already tried: restart", "tried: restart",
	}},
	{ActionFirmwareUpdate, []string{
		"already updated firmware", "updated firmware", "tried updating",
		"firmware update", "updating firmware", "tried: updating firmware",
	}},
	{ActionPoolChange, []string{
		"changed pools", "tried different pool", "switched pools",
		"changing pools", "tried: changing pools",
	}},
	{ActionCheckLogs, []string{
		"checked logs", "looked at logs", "reviewed logs", "tried: checking logs",
	}},
}
