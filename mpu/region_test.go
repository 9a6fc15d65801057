package mpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttr(t *testing.T) {
	assert := assert.New(t)

	attr, err := Attr(512, AP_FULL, 0, true)
	assert.NoError(err)
	assert.Equal(uint32(0x1300_0011), attr)

	region := Region{Base: 0x2000_0000, Attr: attr}
	assert.True(region.Enabled())
	assert.Equal(uint32(8), region.SizeField())
	assert.Equal(uint64(512), region.Size())
	assert.Equal(uint32(AP_FULL), region.AccessPermission())
	assert.NoError(region.Validate())

	_, err = Attr(16, AP_FULL, 0, false)
	assert.ErrorIs(err, ErrRegionSize)

	_, err = Attr(48, AP_FULL, 0, false)
	assert.ErrorIs(err, ErrAttrSize)

	attr, err = Attr(1<<32, AP_RO, 0, false)
	assert.NoError(err)
	assert.Equal(uint64(1<<32), Region{Attr: attr}.Size())
}

func TestRegion_Validate(t *testing.T) {
	assert := assert.New(t)

	attr, _ := Attr(256, AP_FULL, 0, false)

	assert.ErrorIs(Region{Base: 0x2000_0010, Attr: attr}.Validate(), ErrRegionAlign)
	assert.NoError(Region{Base: 0x2000_0100, Attr: attr}.Validate())
	assert.NoError(Region{Base: 0x2000_0010}.Validate(), "disabled regions are not checked")
}

func TestRegion_Contains(t *testing.T) {
	assert := assert.New(t)

	attr, _ := Attr(256, AP_FULL, 0x80, false)
	region := Region{Base: 0x2000_0000, Attr: attr}

	assert.True(region.Contains(0x2000_0000))
	assert.True(region.Contains(0x2000_00df))
	assert.False(region.Contains(0x2000_00e0), "subregion 7 disabled")
	assert.False(region.Contains(0x2000_0100))
	assert.False(region.Contains(0x1fff_fffc))

	assert.False(Region{Base: 0x2000_0000}.Contains(0x2000_0000))
}

func TestRegion_Writable(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		ap         uint32
		privileged bool
		user       bool
	}){
		{AP_NONE, false, false},
		{AP_PRIV_RW, true, false},
		{AP_PRIV_RW_USER_RO, true, false},
		{AP_FULL, true, true},
		{AP_PRIV_RO, false, false},
		{AP_RO, false, false},
		{AP_RO_ALT, false, false},
	}

	for _, entry := range table {
		attr, err := Attr(32, entry.ap, 0, false)
		assert.NoError(err)
		region := Region{Attr: attr}
		assert.Equal(entry.privileged, region.Writable(true), "ap %d", entry.ap)
		assert.Equal(entry.user, region.Writable(false), "ap %d", entry.ap)
	}
}

func TestStackMask(t *testing.T) {
	assert := assert.New(t)

	attr, _ := Attr(512, AP_FULL, 0x5a, true)
	region := Region{Base: 0x2001_c000, Attr: attr}

	table := [](struct {
		sp   uint32
		mask uint8
	}){
		{region.Base + 300, 0xe0},
		{region.Base, 0xfe},
		{region.Base + 63, 0xfe},
		{region.Base + 64, 0xfc},
		{region.Base + 511, 0x00},
		{region.Base + 512, 0x00},
		{region.Base + 0x1000, 0x00},
		{region.Base - 4, 0xff},
	}

	for _, entry := range table {
		masked := StackMask(region, entry.sp)
		assert.Equal(entry.mask, masked.Subregions(), "sp %#x", entry.sp)
		assert.Equal(region.Base, masked.Base)
		assert.Equal(region.Attr&^RASR_SRD_MASK, masked.Attr&^RASR_SRD_MASK)
	}

	// Every subregion above the one holding sp is disabled.
	for used := range uint32(8) {
		masked := StackMask(region, region.Base+used*64+32)
		assert.Equal(uint8(0xff<<(used+1)), masked.Subregions(), "subregion %d", used)
	}

	disabled := Region{Base: region.Base, Attr: region.Attr &^ RASR_ENABLE}
	assert.Equal(disabled, StackMask(disabled, region.Base+300))
}

func TestDefines(t *testing.T) {
	assert := assert.New(t)

	defines := map[string]string{}
	for key, value := range Defines() {
		defines[key] = value
	}

	assert.Equal("3", defines["AP_FULL"])
	assert.Equal("0x10000000", defines["RASR_XN"])
}
