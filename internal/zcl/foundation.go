package zcl

// Foundation ZCL command IDs (global, not cluster-specific).
const (
	FoundationReadAttributes         uint8 = 0x00
	FoundationReadAttributesResponse uint8 = 0x01
	FoundationWriteAttributes        uint8 = 0x02
	FoundationWriteAttributesResp    uint8 = 0x04
	FoundationConfigReporting        uint8 = 0x06
	FoundationConfigReportingResp    uint8 = 0x07
	FoundationReportAttributes       uint8 = 0x0A
	FoundationDefaultResponse        uint8 = 0x0B
)

// ZCL status codes
const (
	StatusSuccess         uint8 = 0x00
	StatusFailure         uint8 = 0x01
	StatusUnsupportedAttr uint8 = 0x86
	StatusInvalidValue    uint8 = 0x87
	StatusReadOnly        uint8 = 0x88
	StatusNotFound        uint8 = 0x8B
	StatusUnreportable    uint8 = 0x8C
	StatusInvalidDataType uint8 = 0x8D
)
