package compartment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack_Push(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	s.Reset(Entry{Policy: 0x0800_1000})
	assert.True(s.Empty())
	assert.False(s.Full())

	assert.True(s.Push(Entry{Return: 0x0800_0201, Policy: 0x0800_1044, Id: 1}))
	assert.False(s.Empty())
	assert.Equal(1, s.Depth())
	assert.Equal(uint32(0x0800_0201), s.Peek().Return)
	assert.Equal(uint32(0x0800_1000), s.Base().Policy)
}

func TestStack_Pop(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	s.Reset(Entry{Policy: 0x0800_1000})
	s.Push(Entry{Return: 0x12345678})
	s.Push(Entry{Return: 0xABCDEF01})

	val, ok := s.Pop()
	assert.True(ok)
	assert.Equal(uint32(0xABCDEF01), val.Return)
	assert.Equal(1, s.Depth())

	val, ok = s.Pop()
	assert.True(ok)
	assert.Equal(uint32(0x12345678), val.Return)
	assert.Equal(0, s.Depth())
}

func TestStack_Pop_Empty(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	s.Reset(Entry{Policy: 0x0800_1000})
	val, ok := s.Pop()
	assert.False(ok)
	assert.Equal(Entry{}, val)
	assert.Equal(uint32(0x0800_1000), s.Peek().Policy, "base entry kept")
}

func TestStack_Capacity(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	s.Reset(Entry{})

	for i := 0; i < STACK_LIMIT; i++ {
		assert.False(s.Full())
		assert.True(s.Push(Entry{Return: uint32(i)}))
	}

	assert.True(s.Full())
	assert.False(s.Push(Entry{Return: 0xffff}))
	assert.Equal(STACK_LIMIT, s.Depth())
	assert.Len(s.Entries(), STACK_LIMIT+1)
	assert.Equal(uint32(STACK_LIMIT-1), s.Peek().Return)
}

func TestStack_Reset(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	s.Reset(Entry{Id: 1})
	s.Push(Entry{Return: 0x12345678})
	s.Push(Entry{Return: 0xABCDEF01})
	assert.Equal(2, s.Depth())

	s.Reset(Entry{Id: 2})
	assert.True(s.Empty())
	assert.Equal(uint8(2), s.Peek().Id)
	assert.Equal([]Entry{{Id: 2}}, s.Entries())
}
