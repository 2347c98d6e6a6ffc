package storage

// ProfilePathFor exposes profilePathFor to tests.
var ProfilePathFor = profilePathFor
