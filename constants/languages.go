package constants

// DebugType launch.json中的type，也是initialize请求的adapterID
const DebugType = "mcfunction"
