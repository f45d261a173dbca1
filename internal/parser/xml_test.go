package parser

import (
	"errors"
	"testing"

	"github.com/ThiagoRGoveia/apt-trades/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePage(t *testing.T) {
	t.Run("should decode items with trimmed tags and values", func(t *testing.T) {
		items := testutil.APIItems("202401", 3)
		page, err := DecodePage([]byte(testutil.PageXML(items, 1000, 3)))

		require.NoError(t, err)
		require.Len(t, page.Records, 3)
		assert.Equal(t, 3, page.TotalCount)
		assert.Equal(t, "000", page.ResultCode)
		assert.Equal(t, "50,000", page.Records[0]["dealAmount"])
		assert.Equal(t, "", page.Records[0]["cdealType"])
		assert.Equal(t, items[2].Map(), map[string]string(page.Records[2]))
	})

	t.Run("should decode Korean element names", func(t *testing.T) {
		item := testutil.NewLegacyItem("202208", 5, "82,500")
		page, err := DecodePage([]byte(testutil.PageXML([]testutil.Item{item}, 1000, -1)))

		require.NoError(t, err)
		require.Len(t, page.Records, 1)
		assert.Equal(t, "82,500", page.Records[0]["거래금액"])
		assert.Equal(t, -1, page.TotalCount)
	})

	t.Run("should treat an empty items list as a valid zero-row page", func(t *testing.T) {
		page, err := DecodePage([]byte(testutil.PageXML(nil, 1000, 0)))

		require.NoError(t, err)
		assert.Empty(t, page.Records)
		assert.Equal(t, 0, page.TotalCount)
	})

	t.Run("should signal a missing body with the provider reason", func(t *testing.T) {
		_, err := DecodePage([]byte(testutil.QuotaExceededXML))

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingBody)
		var mb *MissingBodyError
		require.True(t, errors.As(err, &mb))
		assert.Equal(t, "LIMITED_NUMBER_OF_SERVICE_REQUESTS_EXCEEDS_ERROR", mb.Reason)
	})

	t.Run("should signal a missing body for a header-only response", func(t *testing.T) {
		_, err := DecodePage([]byte(`<response><header><resultCode>99</resultCode><resultMsg>LIMITED</resultMsg></header></response>`))
		assert.ErrorIs(t, err, ErrMissingBody)
	})

	t.Run("should signal a missing body for an empty response", func(t *testing.T) {
		_, err := DecodePage([]byte("  \n"))
		assert.ErrorIs(t, err, ErrMissingBody)
	})

	t.Run("should fail on malformed xml without claiming quota exhaustion", func(t *testing.T) {
		_, err := DecodePage([]byte(`<response><body><items><item>`))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMissingBody)
	})
}
