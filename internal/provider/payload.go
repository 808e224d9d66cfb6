package provider

import (
	"github.com/pavra/push-dispatch/internal/domain"
)

// Fixed presentation constants sent with every notification. These are
// product branding values, not derived from input.
const (
	smallIcon          = "ic_stat_onesignal_default"
	largeIcon          = "ic_launcher"
	androidAccentColor = "FF2196F3"
	iosBadgeType       = "Increase"
	iosBadgeCount      = 1
	pushChannel        = "push"
	iosSoundSuffix     = ".wav"
)

// Fixed data keys that always win over caller-supplied data entries.
const (
	dataKeyNotificationID = "notification_id"
	dataKeyType           = "type"
)

// Aliases is the alias-based targeting block for explicit recipient lists.
type Aliases struct {
	ExternalID []string `json:"external_id"`
}

// Payload is the exact OneSignal create-notification request body. Optional
// fields are pointers so that absent input stays absent on the wire.
type Payload struct {
	AppID    string            `json:"app_id"`
	Headings map[string]string `json:"headings"`
	Contents map[string]string `json:"contents"`

	SmallIcon          string `json:"small_icon"`
	LargeIcon          string `json:"large_icon"`
	AndroidAccentColor string `json:"android_accent_color"`
	IOSBadgeType       string `json:"ios_badgeType"`
	IOSBadgeCount      int    `json:"ios_badgeCount"`

	Data map[string]any `json:"data"`

	IncludedSegments []string `json:"included_segments,omitempty"`
	IncludeAliases   *Aliases `json:"include_aliases,omitempty"`
	TargetChannel    string   `json:"target_channel,omitempty"`

	AndroidSound     *string `json:"android_sound,omitempty"`
	IOSSound         *string `json:"ios_sound,omitempty"`
	AndroidChannelID *string `json:"android_channel_id,omitempty"`
	Priority         *int    `json:"priority,omitempty"`
}

// BuildPayload renders a notification and its resolved directive into the
// provider request body. Pure function; identical input yields an identical
// payload.
func BuildPayload(appID string, n *domain.Notification, directive domain.TargetDirective) *Payload {
	data := make(map[string]any, len(n.Data)+2)
	for k, v := range n.Data {
		data[k] = v
	}
	data[dataKeyNotificationID] = n.ID
	data[dataKeyType] = n.Type

	p := &Payload{
		AppID:    appID,
		Headings: map[string]string{"en": n.Title},
		Contents: map[string]string{"en": n.Message},

		SmallIcon:          smallIcon,
		LargeIcon:          largeIcon,
		AndroidAccentColor: androidAccentColor,
		IOSBadgeType:       iosBadgeType,
		IOSBadgeCount:      iosBadgeCount,

		Data: data,
	}

	if directive.IsBroadcast() {
		p.IncludedSegments = []string{"All"}
	} else {
		p.IncludeAliases = &Aliases{ExternalID: directive.ExternalIDs()}
		p.TargetChannel = pushChannel
	}

	if n.Sound != nil {
		androidSound := *n.Sound
		iosSound := *n.Sound + iosSoundSuffix
		p.AndroidSound = &androidSound
		p.IOSSound = &iosSound
	}
	if n.Category != nil {
		channelID := *n.Category
		p.AndroidChannelID = &channelID
	}
	if n.Priority != nil {
		priority := *n.Priority
		p.Priority = &priority
	}

	return p
}
