package txerror

import (
	"fmt"
	"strings"
)

// Category is the bounded set of failure kinds shown to users
type Category string

const (
	SubmissionWindowClosed Category = "submission_window_closed"
	VotingWindowClosed     Category = "voting_window_closed"
	StakeBelowMinimum      Category = "stake_below_minimum"
	InsufficientBalance    Category = "insufficient_balance"
	SubmissionLimitReached Category = "submission_limit_reached"
	TransactionReverted    Category = "transaction_reverted"
	Unknown                Category = "unknown"
)

// Hints carries display context interpolated into messages. Empty fields fall back to
// generic wording.
type Hints struct {
	MinStake       string
	Balance        string
	MaxSubmissions *int64
}

// Classified is a failure mapped to a category with user-facing text
type Classified struct {
	Category Category `json:"category"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Raw      string   `json:"raw,omitempty"`
}

// rule matches a lower-cased substring. Order matters: the first match wins.
type rule struct {
	needle   string
	category Category
	title    string
	message  func(Hints) string
}

var rules = []rule{
	{
		needle:   "submissions closed",
		category: SubmissionWindowClosed,
		title:    "Submission Failed",
		message: func(Hints) string {
			return "The submission window for this meme battle has closed. Please wait for the next battle!"
		},
	},
	{
		needle:   "voting closed",
		category: VotingWindowClosed,
		title:    "Voting Failed",
		message: func(Hints) string {
			return "Voting is no longer open for this battle. Check the results soon!"
		},
	},
	{
		needle:   "below min stake",
		category: StakeBelowMinimum,
		title:    "Insufficient Vote Amount",
		message: func(h Hints) string {
			if h.MinStake == "" {
				return "Your vote is below the minimum required stake for this battle."
			}
			return fmt.Sprintf("Your vote is below the minimum required stake. You need to stake at least %s to submit your vote.", h.MinStake)
		},
	},
	{
		needle:   "insufficient balance",
		category: InsufficientBalance,
		title:    "Transaction Blocked",
		message: func(h Hints) string {
			if h.Balance == "" {
				return "Insufficient token balance to complete this action."
			}
			return fmt.Sprintf("Insufficient token balance to complete this action. Your current balance is %s.", h.Balance)
		},
	},
	{
		needle:   "user submissions limit",
		category: SubmissionLimitReached,
		title:    "Submission Limit Reached",
		message: func(h Hints) string {
			if h.MaxSubmissions == nil {
				return "You have reached the maximum number of submissions allowed for this battle."
			}
			return fmt.Sprintf("You have reached the maximum limit of %d submissions allowed for this battle.", *h.MaxSubmissions)
		},
	},
}

// Classify maps a raw failure message to a category. It is a presentation aid only and never
// decides whether an action is allowed.
func Classify(raw string, hints Hints) Classified {
	msg := strings.ToLower(raw)

	for _, r := range rules {
		if strings.Contains(msg, r.needle) {
			return Classified{Category: r.category, Title: r.title, Message: r.message(hints), Raw: raw}
		}
	}

	if strings.Contains(msg, "transaction failed") || strings.Contains(msg, "revert") {
		return Classified{
			Category: TransactionReverted,
			Title:    "Transaction Reverted",
			Message:  "The blockchain transaction failed. This is usually due to a contract error. Please check gas limits or try again.",
			Raw:      raw,
		}
	}

	details := raw
	if strings.TrimSpace(details) == "" {
		details = "An unknown error occurred."
	}
	return Classified{
		Category: Unknown,
		Title:    "An Unexpected Error Occurred",
		Message:  "Details: " + details,
		Raw:      raw,
	}
}

// ClassifyError is Classify for an error value; a nil error classifies as Unknown
func ClassifyError(err error, hints Hints) Classified {
	if err == nil {
		return Classify("", hints)
	}
	return Classify(err.Error(), hints)
}
