package models

// Model is an opponent model owned by a user. StoragePath is the artifact
// store key when Uploaded is set, otherwise an external reference.
type Model struct {
	ID          uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string  `json:"name" gorm:"size:255;not null"`
	Description *string `json:"description,omitempty" gorm:"type:text"`
	StoragePath string  `json:"storage_path" gorm:"size:1024"`
	Uploaded    bool    `json:"-" gorm:"not null;default:false"`
	UserID      uint    `json:"user_id" gorm:"not null;index"`
	User        *User   `json:"-" gorm:"constraint:OnDelete:CASCADE"`

	// ArtifactURL is filled in by the service for uploaded artifacts.
	ArtifactURL string `json:"artifact_url,omitempty" gorm:"-"`

	Timestamps
}
