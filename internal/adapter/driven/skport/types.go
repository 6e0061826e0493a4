package skport

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Business status codes shared by the SKPort endpoints.
const (
	codeOK             = 0
	codeAlreadyClaimed = 1001
	codeAlreadySigned  = 10001
	codeTokenExpired   = 10002
)

// grantResponse is the OAuth grant endpoint's shape. Unlike every other
// SKPort endpoint it reports "status" instead of "code" and "msg" instead of
// "message".
type grantResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
	Data   struct {
		Code string `json:"code"`
	} `json:"data"`
}

type credResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Cred string `json:"cred"`
	} `json:"data"`
}

type refreshResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Token string `json:"token"`
	} `json:"data"`
}

type bindingResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		List []appBinding `json:"list"`
	} `json:"data"`
}

type appBinding struct {
	AppCode     string `json:"appCode"`
	BindingList []struct {
		DefaultRole *roleInfo  `json:"defaultRole"`
		Roles       []roleInfo `json:"roles"`
	} `json:"bindingList"`
}

type roleInfo struct {
	RoleID   string `json:"roleId"`
	ServerID string `json:"serverId"`
}

type statusResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		HasToday bool `json:"hasToday"`
		Calendar []struct {
			Done    bool   `json:"done"`
			AwardID string `json:"awardId"`
		} `json:"calendar"`
	} `json:"data"`
}

type claimResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		AwardIDs        []awardID               `json:"awardIds"`
		ResourceInfoMap map[string]resourceInfo `json:"resourceInfoMap"`
	} `json:"data"`
}

type resourceInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// awardID tolerates both wire forms observed in claim responses: a bare
// string and an {"id": "..."} object.
type awardID struct {
	ID string
}

func (a *awardID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.ID = s
		return nil
	}

	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unexpected award id shape: %w", err)
	}
	a.ID = obj.ID
	return nil
}

// isAlreadyClaimed reports whether a claim rejection means the reward was
// claimed earlier today. The remote service is inconsistent about which code
// it uses, so the message text is checked as a fallback.
func isAlreadyClaimed(code int, message string) bool {
	if code == codeAlreadyClaimed || code == codeAlreadySigned {
		return true
	}
	return strings.Contains(strings.ToLower(message), "already")
}

// rewardText renders claimed awards as "Name xCount" entries joined with
// ", ". Awards missing from the resource map are skipped.
func rewardText(ids []awardID, resources map[string]resourceInfo) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		res, ok := resources[id.ID]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s x%d", res.Name, res.Count))
	}
	return strings.Join(parts, ", ")
}
