package txerror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Categories(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Category
	}{
		{"submissions closed", "execution reverted: Submissions closed", SubmissionWindowClosed},
		{"voting closed", "execution reverted: Voting closed", VotingWindowClosed},
		{"below min stake", "execution reverted: Below min stake", StakeBelowMinimum},
		{"insufficient balance", "ERC20: Insufficient Balance", InsufficientBalance},
		{"submission limit", "execution reverted: User submissions limit reached", SubmissionLimitReached},
		{"generic revert", "execution reverted", TransactionReverted},
		{"transaction failed", "Transaction failed with status 0", TransactionReverted},
		{"unknown", "connection refused", Unknown},
		{"empty", "", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.raw, Hints{})
			assert.Equal(t, tt.want, got.Category)
			assert.Equal(t, tt.raw, got.Raw)
			assert.NotEmpty(t, got.Title)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestClassify_SpecificBeforeGenericRevert(t *testing.T) {
	got := Classify("execution reverted: submissions closed", Hints{})
	assert.Equal(t, SubmissionWindowClosed, got.Category)
	assert.Equal(t, "Submission Failed", got.Title)
}

func TestClassify_Hints(t *testing.T) {
	limit := int64(3)
	hints := Hints{MinStake: "1", Balance: "0.5", MaxSubmissions: &limit}

	assert.Contains(t, Classify("below min stake", hints).Message, "at least 1 to submit")
	assert.Contains(t, Classify("insufficient balance", hints).Message, "balance is 0.5.")
	assert.Contains(t, Classify("user submissions limit", hints).Message, "maximum limit of 3 submissions")
}

func TestClassify_WithoutHintsStillCategorizes(t *testing.T) {
	got := Classify("below min stake", Hints{})
	assert.Equal(t, StakeBelowMinimum, got.Category)
	assert.NotContains(t, got.Message, "%")
}

func TestClassify_UnknownCarriesRaw(t *testing.T) {
	got := Classify("dial tcp: i/o timeout", Hints{})
	assert.Equal(t, "Details: dial tcp: i/o timeout", got.Message)

	assert.Equal(t, "Details: An unknown error occurred.", Classify("  ", Hints{}).Message)
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, VotingWindowClosed, ClassifyError(errors.New("Voting closed"), Hints{}).Category)
	assert.Equal(t, Unknown, ClassifyError(nil, Hints{}).Category)
}
