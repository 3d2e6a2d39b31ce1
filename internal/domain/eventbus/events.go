package eventbus

import "time"

const (
	// TopicActivityCreated carries an activity.Entry after it is persisted.
	TopicActivityCreated = "activity:created"
	// TopicSessionLogin carries a SessionEvent after a login is recorded.
	TopicSessionLogin = "session:login"
	// TopicSessionLogout carries a SessionEvent after a user logs out.
	TopicSessionLogout = "session:logout"
)

type SessionEvent struct {
	UserID       uint      `json:"userId"`
	SessionToken string    `json:"-"`
	LoginTime    time.Time `json:"loginTime"`
}
