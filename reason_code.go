package nextmqtt

// ReasonCode is a single-byte MQTT v5.0 reason code, spec section 2.4.
type ReasonCode byte

// Reason codes used by the packet kinds this client speaks.
const (
	ReasonSuccess               ReasonCode = 0x00 // also "granted QoS 0" on SUBACK
	ReasonGrantedQoS1           ReasonCode = 0x01
	ReasonGrantedQoS2           ReasonCode = 0x02
	ReasonNoMatchingSubscribers ReasonCode = 0x10
	ReasonNoSubscriptionExisted ReasonCode = 0x11

	ReasonUnspecifiedError           ReasonCode = 0x80
	ReasonMalformedPacket            ReasonCode = 0x81
	ReasonProtocolError              ReasonCode = 0x82
	ReasonImplSpecificError          ReasonCode = 0x83
	ReasonUnsupportedProtocolVersion ReasonCode = 0x84
	ReasonClientIDNotValid           ReasonCode = 0x85
	ReasonBadUserNameOrPassword      ReasonCode = 0x86
	ReasonNotAuthorized              ReasonCode = 0x87
	ReasonServerUnavailable          ReasonCode = 0x88
	ReasonServerBusy                 ReasonCode = 0x89
	ReasonBanned                     ReasonCode = 0x8A
	ReasonBadAuthMethod              ReasonCode = 0x8C
	ReasonTopicFilterInvalid         ReasonCode = 0x8F
	ReasonTopicNameInvalid           ReasonCode = 0x90
	ReasonPacketIDInUse              ReasonCode = 0x91
	ReasonPacketIDNotFound           ReasonCode = 0x92
	ReasonQuotaExceeded              ReasonCode = 0x97
	ReasonPayloadFormatInvalid       ReasonCode = 0x99
	ReasonUseAnotherServer           ReasonCode = 0x9C
	ReasonServerMoved                ReasonCode = 0x9D
	ReasonSharedSubsNotSupported     ReasonCode = 0x9E
	ReasonConnectionRateExceeded     ReasonCode = 0x9F
	ReasonSubIDsNotSupported         ReasonCode = 0xA1
	ReasonWildcardSubsNotSupported   ReasonCode = 0xA2
)

var reasonCodeStrings = map[ReasonCode]string{
	ReasonSuccess:                    "Success",
	ReasonGrantedQoS1:                "Granted QoS 1",
	ReasonGrantedQoS2:                "Granted QoS 2",
	ReasonNoMatchingSubscribers:      "No matching subscribers",
	ReasonNoSubscriptionExisted:      "No subscription existed",
	ReasonUnspecifiedError:           "Unspecified error",
	ReasonMalformedPacket:            "Malformed packet",
	ReasonProtocolError:              "Protocol error",
	ReasonImplSpecificError:          "Implementation specific error",
	ReasonUnsupportedProtocolVersion: "Unsupported protocol version",
	ReasonClientIDNotValid:           "Client identifier not valid",
	ReasonBadUserNameOrPassword:      "Bad user name or password",
	ReasonNotAuthorized:              "Not authorized",
	ReasonServerUnavailable:          "Server unavailable",
	ReasonServerBusy:                 "Server busy",
	ReasonBanned:                     "Banned",
	ReasonBadAuthMethod:              "Bad authentication method",
	ReasonTopicFilterInvalid:         "Topic filter invalid",
	ReasonTopicNameInvalid:           "Topic name invalid",
	ReasonPacketIDInUse:              "Packet identifier in use",
	ReasonPacketIDNotFound:           "Packet identifier not found",
	ReasonQuotaExceeded:              "Quota exceeded",
	ReasonPayloadFormatInvalid:       "Payload format invalid",
	ReasonUseAnotherServer:           "Use another server",
	ReasonServerMoved:                "Server moved",
	ReasonSharedSubsNotSupported:     "Shared subscriptions not supported",
	ReasonConnectionRateExceeded:     "Connection rate exceeded",
	ReasonSubIDsNotSupported:         "Subscription identifiers not supported",
	ReasonWildcardSubsNotSupported:   "Wildcard subscriptions not supported",
}

func (r ReasonCode) String() string {
	if s, ok := reasonCodeStrings[r]; ok {
		return s
	}
	return "unknown reason code"
}

// IsError reports whether the reason code is a failure (>= 0x80).
func (r ReasonCode) IsError() bool { return r >= 0x80 }

const ReasonGrantedQoS0 = ReasonSuccess

var connackReasonCodes = map[ReasonCode]bool{
	ReasonSuccess: true, ReasonUnspecifiedError: true, ReasonMalformedPacket: true,
	ReasonProtocolError: true, ReasonImplSpecificError: true, ReasonUnsupportedProtocolVersion: true,
	ReasonClientIDNotValid: true, ReasonBadUserNameOrPassword: true, ReasonNotAuthorized: true,
	ReasonServerUnavailable: true, ReasonServerBusy: true, ReasonBanned: true,
	ReasonBadAuthMethod: true, ReasonTopicNameInvalid: true, ReasonQuotaExceeded: true,
	ReasonPayloadFormatInvalid: true, ReasonUseAnotherServer: true, ReasonServerMoved: true,
	ReasonConnectionRateExceeded: true,
}

var pubackReasonCodes = map[ReasonCode]bool{
	ReasonSuccess: true, ReasonNoMatchingSubscribers: true, ReasonUnspecifiedError: true,
	ReasonImplSpecificError: true, ReasonNotAuthorized: true, ReasonTopicNameInvalid: true,
	ReasonPacketIDInUse: true, ReasonQuotaExceeded: true, ReasonPayloadFormatInvalid: true,
}

var pubrecReasonCodes = pubackReasonCodes

var pubrelPubcompReasonCodes = map[ReasonCode]bool{
	ReasonSuccess: true, ReasonPacketIDNotFound: true,
}

var subackReasonCodes = map[ReasonCode]bool{
	ReasonGrantedQoS0: true, ReasonGrantedQoS1: true, ReasonGrantedQoS2: true,
	ReasonUnspecifiedError: true, ReasonImplSpecificError: true, ReasonNotAuthorized: true,
	ReasonTopicFilterInvalid: true, ReasonPacketIDInUse: true, ReasonQuotaExceeded: true,
	ReasonSharedSubsNotSupported: true, ReasonSubIDsNotSupported: true, ReasonWildcardSubsNotSupported: true,
}

var unsubackReasonCodes = map[ReasonCode]bool{
	ReasonSuccess: true, ReasonNoSubscriptionExisted: true, ReasonUnspecifiedError: true,
	ReasonImplSpecificError: true, ReasonNotAuthorized: true, ReasonTopicFilterInvalid: true,
	ReasonPacketIDInUse: true,
}

// ValidForCONNACK reports whether r is a reason code CONNACK may carry.
func (r ReasonCode) ValidForCONNACK() bool { return connackReasonCodes[r] }

// ValidForPUBACK reports whether r is a reason code PUBACK may carry.
func (r ReasonCode) ValidForPUBACK() bool { return pubackReasonCodes[r] }

// ValidForPUBREC reports whether r is a reason code PUBREC may carry.
func (r ReasonCode) ValidForPUBREC() bool { return pubrecReasonCodes[r] }

// ValidForPUBREL reports whether r is a reason code PUBREL may carry.
func (r ReasonCode) ValidForPUBREL() bool { return pubrelPubcompReasonCodes[r] }

// ValidForPUBCOMP reports whether r is a reason code PUBCOMP may carry.
func (r ReasonCode) ValidForPUBCOMP() bool { return pubrelPubcompReasonCodes[r] }

// ValidForSUBACK reports whether r is a reason code SUBACK may carry.
func (r ReasonCode) ValidForSUBACK() bool { return subackReasonCodes[r] }

// ValidForUNSUBACK reports whether r is a reason code UNSUBACK may carry.
func (r ReasonCode) ValidForUNSUBACK() bool { return unsubackReasonCodes[r] }
