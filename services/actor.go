package services

import "play-llm-server/models"

// Actor is the authenticated caller a service method acts on behalf of.
type Actor struct {
	UserID    uint
	SessionID uint
	Role      models.Role
}

func ActorFromSession(s *models.Session) Actor {
	a := Actor{UserID: s.UserID, SessionID: s.ID, Role: models.RoleRegular}
	if s.User != nil {
		a.Role = s.User.Role
	}
	return a
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// CanManage reports whether the actor may modify a row owned by ownerID.
func (a Actor) CanManage(ownerID uint) bool {
	return a.IsAdmin() || a.UserID == ownerID
}

// ListOptions bounds list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

func (o ListOptions) normalized() ListOptions {
	if o.Limit <= 0 || o.Limit > 100 {
		o.Limit = 50
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
