package types

// Object is implemented by every persisted kind. It replaces the dynamic
// `getattr`-by-kind-string dispatch of the Python original (spec.md §9) with a
// closed set of concrete types, each implementing the same small interface, so
// the API layer and registry never need reflection.
type Object interface {
	GetMeta() Meta
	SetMeta(Meta)
	ObjectKind() Kind
}

func (c *Cluster) GetMeta() Meta     { return c.Metadata }
func (c *Cluster) SetMeta(m Meta)    { c.Metadata = m }
func (c *Cluster) ObjectKind() Kind  { return KindCluster }

func (n *Namespace) GetMeta() Meta    { return n.Metadata }
func (n *Namespace) SetMeta(m Meta)   { n.Metadata = m }
func (n *Namespace) ObjectKind() Kind { return KindNamespace }

func (j *Job) GetMeta() Meta     { return j.Metadata }
func (j *Job) SetMeta(m Meta)    { j.Metadata = m }
func (j *Job) ObjectKind() Kind  { return KindJob }

func (f *FilterPolicy) GetMeta() Meta     { return f.Metadata }
func (f *FilterPolicy) SetMeta(m Meta)    { f.Metadata = m }
func (f *FilterPolicy) ObjectKind() Kind  { return KindFilterPolicy }

func (s *Service) GetMeta() Meta     { return s.Metadata }
func (s *Service) SetMeta(m Meta)    { s.Metadata = m }
func (s *Service) ObjectKind() Kind  { return KindService }

func (e *Endpoints) GetMeta() Meta     { return e.Metadata }
func (e *Endpoints) SetMeta(m Meta)    { e.Metadata = m }
func (e *Endpoints) ObjectKind() Kind  { return KindEndpoints }

func (l *Link) GetMeta() Meta     { return l.Metadata }
func (l *Link) SetMeta(m Meta)    { l.Metadata = m }
func (l *Link) ObjectKind() Kind  { return KindLink }

func (r *Role) GetMeta() Meta     { return r.Metadata }
func (r *Role) SetMeta(m Meta)    { r.Metadata = m }
func (r *Role) ObjectKind() Kind  { return KindRole }

func (u *User) GetMeta() Meta     { return u.Metadata }
func (u *User) SetMeta(m Meta)    { u.Metadata = m }
func (u *User) ObjectKind() Kind  { return KindUser }
