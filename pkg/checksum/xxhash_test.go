package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateHash(t *testing.T) {
	t.Run("should be stable for equal input", func(t *testing.T) {
		a := CalculateHash([]string{"202401", "11110", "85000"})
		b := CalculateHash([]string{"202401", "11110", "85000"})
		assert.Equal(t, a, b)
		assert.Len(t, a, 16)
	})

	t.Run("should depend on field boundaries", func(t *testing.T) {
		assert.NotEqual(t, CalculateHash([]string{"ab", "c"}), CalculateHash([]string{"a", "bc"}))
	})
}

func TestSum(t *testing.T) {
	data := []byte("1111000000\t서울특별시 종로구\t존재\n")

	sum := Sum(data)

	assert.Len(t, sum, 16)
	assert.Equal(t, sum, Sum(data))
	assert.NotEqual(t, sum, Sum(append(data, '\n')))
}
