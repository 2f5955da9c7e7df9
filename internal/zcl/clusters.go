package zcl

// Cluster IDs used by the capability extensions.
const (
	ClusterBasic         uint16 = 0x0000
	ClusterPowerConfig   uint16 = 0x0001
	ClusterIdentify      uint16 = 0x0003
	ClusterOnOff         uint16 = 0x0006
	ClusterLevelControl  uint16 = 0x0008
	ClusterPollControl   uint16 = 0x0020
	ClusterDoorLock      uint16 = 0x0101
	ClusterColorControl  uint16 = 0x0300
	ClusterIlluminance   uint16 = 0x0400
	ClusterTemperature   uint16 = 0x0402
	ClusterPressure      uint16 = 0x0403
	ClusterHumidity      uint16 = 0x0405
	ClusterOccupancy     uint16 = 0x0406
	ClusterIASZone       uint16 = 0x0500
	ClusterIASWD         uint16 = 0x0502
	ClusterMetering      uint16 = 0x0702
	ClusterElectrical    uint16 = 0x0B04
)

var Basic = ClusterDef{
	ID:   ClusterBasic,
	Name: "Basic",
	Attributes: []AttributeDef{
		{ID: 0x0004, Name: "ManufacturerName", Type: TypeCharStr, Access: AccessRead},
		{ID: 0x0005, Name: "ModelIdentifier", Type: TypeCharStr, Access: AccessRead},
		{ID: 0x0007, Name: "PowerSource", Type: TypeEnum8, Access: AccessRead},
	},
}

var PowerConfiguration = ClusterDef{
	ID:   ClusterPowerConfig,
	Name: "Power Configuration",
	Attributes: []AttributeDef{
		{ID: 0x0020, Name: "BatteryVoltage", Type: TypeUint8, Access: AccessRead | AccessReport},
		{ID: 0x0021, Name: "BatteryPercentageRemaining", Type: TypeUint8, Access: AccessRead | AccessReport},
		{ID: 0x003E, Name: "BatteryAlarmState", Type: TypeBitmap32, Access: AccessRead | AccessReport},
	},
}

var Identify = ClusterDef{
	ID:   ClusterIdentify,
	Name: "Identify",
	Attributes: []AttributeDef{
		{ID: 0x0000, Name: "IdentifyTime", Type: TypeUint16, Access: AccessRead | AccessWrite},
	},
	Commands: []CommandDef{
		{ID: 0x00, Name: "Identify", Direction: DirectionToServer},
		{ID: 0x40, Name: "TriggerEffect", Direction: DirectionToServer},
	},
}

var OnOff = ClusterDef{
	ID:   ClusterOnOff,
	Name: "On/Off",
	Attributes: []AttributeDef{
		{ID: 0x0000, Name: "OnOff", Type: TypeBool, Access: AccessRead | AccessReport},
		{ID: 0x4003, Name: "StartUpOnOff", Type: TypeEnum8, Access: AccessRead | AccessWrite},
	},
	Commands: []CommandDef{
		{ID: 0x00, Name: "Off", Direction: DirectionToServer},
		{ID: 0x01, Name: "On", Direction: DirectionToServer},
		{ID: 0x02, Name: "Toggle", Direction: DirectionToServer},
		{ID: 0x40, Name: "OffWithEffect", Direction: DirectionToServer},
	},
}

var LevelControl = ClusterDef{
	ID:   ClusterLevelControl,
	Name: "Level Control",
	Attributes: []AttributeDef{
		{ID: 0x0000, Name: "CurrentLevel", Type: TypeUint8, Access: AccessRead | AccessReport},
		{ID: 0x0011, Name: "OnLevel", Type: TypeUint8, Access: AccessRead | AccessWrite},
		{ID: 0x4000, Name: "StartUpCurrentLevel", Type: TypeUint8, Access: AccessRead | AccessWrite},
	},
	Commands: []CommandDef{
		{ID: 0x00, Name: "MoveToLevel", Direction: DirectionToServer},
		{ID: 0x04, Name: "MoveToLevelWithOnOff", Direction: DirectionToServer},
	},
}

var PollControl = ClusterDef{
	ID:   ClusterPollControl,
	Name: "Poll Control",
	Attributes: []AttributeDef{
		{ID: 0x0000, Name: "CheckinInterval", Type: TypeUint32, Access: AccessRead | AccessWrite},
	},
}

var DoorLock = ClusterDef{
	ID:   ClusterDoorLock,
	Name: "Door Lock",
	Attributes: []AttributeDef{
		{ID: 0x0000, Name: "LockState", Type: TypeEnum8, Access: AccessRead | AccessReport},
		{ID: 0x0023, Name: "AutoRelockTime", Type: TypeUint32, Access: AccessRead | AccessWrite},
		{ID: 0x0024, Name: "SoundVolume", Type: TypeUint8, Access: AccessRead | AccessWrite},
	},
	Commands: []CommandDef{
		{ID: 0x00, Name: "LockDoor", Direction: DirectionToServer},
		{ID: 0x01, Name: "UnlockDoor", Direction: DirectionToServer},
		{ID: 0x05, Name: "SetPINCode", Direction: DirectionToServer},
		{ID: 0x06, Name: "GetPINCode", Direction: DirectionToServer},
	},
}

var ColorControl = ClusterDef{
	ID:   ClusterColorControl,
	Name: "Color Control",
	Attributes: []AttributeDef{
		{ID: 0x0000, Name: "CurrentHue", Type: TypeUint8, Access: AccessRead | AccessReport},
		{ID: 0x0001, Name: "CurrentSaturation", Type: TypeUint8, Access: AccessRead | AccessReport},
		{ID: 0x0003, Name: "CurrentX", Type: TypeUint16, Access: AccessRead | AccessReport},
		{ID: 0x0004, Name: "CurrentY", Type: TypeUint16, Access: AccessRead | AccessReport},
		{ID: 0x0007, Name: "ColorTemperatureMireds", Type: TypeUint16, Access: AccessRead | AccessReport},
		{ID: 0x0008, Name: "ColorMode", Type: TypeEnum8, Access: AccessRead | AccessReport},
		{ID: 0x4000, Name: "EnhancedCurrentHue", Type: TypeUint16, Access: AccessRead | AccessReport},
		{ID: 0x400B, Name: "ColorTempPhysicalMinMireds", Type: TypeUint16, Access: AccessRead},
		{ID: 0x400C, Name: "ColorTempPhysicalMaxMireds", Type: TypeUint16, Access: AccessRead},
	},
	Commands: []CommandDef{
		{ID: 0x06, Name: "MoveToHueAndSaturation", Direction: DirectionToServer},
		{ID: 0x07, Name: "MoveToColor", Direction: DirectionToServer},
		{ID: 0x0A, Name: "MoveToColorTemperature", Direction: DirectionToServer},
		{ID: 0x43, Name: "EnhancedMoveToHueAndSaturation", Direction: DirectionToServer},
	},
}

var IlluminanceMeasurement = ClusterDef{
	ID:   ClusterIlluminance,
	Name: "Illuminance Measurement",
	Attributes: []AttributeDef{
		{ID: 0x0000, Name: "MeasuredValue", Type: TypeUint16, Access: AccessRead | AccessReport},
	},
}

var TemperatureMeasurement = ClusterDef{
	ID:   ClusterTemperature,
	Name: "Temperature Measurement",
	Attributes: []AttributeDef{
		{ID: 0x0000, Name: "MeasuredValue", Type: TypeInt16, Access: AccessRead | AccessReport},
	},
}

var IASZone = ClusterDef{
	ID:   ClusterIASZone,
	Name: "IAS Zone",
	Attributes: []AttributeDef{
		{ID: 0x0000, Name: "ZoneState", Type: TypeEnum8, Access: AccessRead},
		{ID: 0x0001, Name: "ZoneType", Type: TypeEnum16, Access: AccessRead},
		{ID: 0x0002, Name: "ZoneStatus", Type: TypeBitmap16, Access: AccessRead | AccessReport},
	},
	Commands: []CommandDef{
		{ID: 0x00, Name: "ZoneEnrollResponse", Direction: DirectionToServer},
		{ID: 0x00, Name: "ZoneStatusChangeNotification", Direction: DirectionToClient},
		{ID: 0x01, Name: "ZoneEnrollRequest", Direction: DirectionToClient},
	},
}

var IASWD = ClusterDef{
	ID:   ClusterIASWD,
	Name: "IAS Warning Device",
	Attributes: []AttributeDef{
		{ID: 0x0000, Name: "MaxDuration", Type: TypeUint16, Access: AccessRead | AccessWrite},
	},
	Commands: []CommandDef{
		{ID: 0x00, Name: "StartWarning", Direction: DirectionToServer},
		{ID: 0x01, Name: "Squawk", Direction: DirectionToServer},
	},
}

var Metering = ClusterDef{
	ID:   ClusterMetering,
	Name: "Metering",
	Attributes: []AttributeDef{
		{ID: 0x0000, Name: "CurrentSummationDelivered", Type: TypeUint48, Access: AccessRead | AccessReport},
		{ID: 0x0301, Name: "Multiplier", Type: TypeUint24, Access: AccessRead},
		{ID: 0x0302, Name: "Divisor", Type: TypeUint24, Access: AccessRead},
		{ID: 0x0400, Name: "InstantaneousDemand", Type: TypeInt24, Access: AccessRead | AccessReport},
	},
}

var ElectricalMeasurement = ClusterDef{
	ID:   ClusterElectrical,
	Name: "Electrical Measurement",
	Attributes: []AttributeDef{
		{ID: 0x0505, Name: "RMSVoltage", Type: TypeUint16, Access: AccessRead | AccessReport},
		{ID: 0x0508, Name: "RMSCurrent", Type: TypeUint16, Access: AccessRead | AccessReport},
		{ID: 0x050B, Name: "ActivePower", Type: TypeInt16, Access: AccessRead | AccessReport},
		{ID: 0x0600, Name: "ACVoltageMultiplier", Type: TypeUint16, Access: AccessRead},
		{ID: 0x0601, Name: "ACVoltageDivisor", Type: TypeUint16, Access: AccessRead},
		{ID: 0x0602, Name: "ACCurrentMultiplier", Type: TypeUint16, Access: AccessRead},
		{ID: 0x0603, Name: "ACCurrentDivisor", Type: TypeUint16, Access: AccessRead},
		{ID: 0x0604, Name: "ACPowerMultiplier", Type: TypeUint16, Access: AccessRead},
		{ID: 0x0605, Name: "ACPowerDivisor", Type: TypeUint16, Access: AccessRead},
	},
}

// StandardClusters returns the cluster set the bridge translates out of the box.
func StandardClusters() []ClusterDef {
	return []ClusterDef{
		Basic,
		PowerConfiguration,
		Identify,
		OnOff,
		LevelControl,
		PollControl,
		DoorLock,
		ColorControl,
		IlluminanceMeasurement,
		TemperatureMeasurement,
		IASZone,
		IASWD,
		Metering,
		ElectricalMeasurement,
	}
}
