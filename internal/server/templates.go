package server

// trainingTemplate is a labeled KOI table in the training upload format.
const trainingTemplate = `kepoi_name,koi_period,koi_duration,koi_impact,koi_depth,koi_prad,koi_insol,koi_model_snr,koi_srad,koi_steff,koi_slogg,koi_fpflag_nt,koi_fpflag_ss,koi_fpflag_co,koi_fpflag_ec,koi_disposition
K00752.01,9.488,2.96,0.146,615.8,2.26,93.59,35.8,0.927,5455,4.467,0,0,0,0,CONFIRMED
K00752.02,54.418,4.51,0.586,874.8,2.83,9.11,25.8,0.927,5455,4.467,0,0,0,0,CONFIRMED
K00755.01,2.525,1.65,0.701,603.3,2.75,1160.0,40.9,0.848,6031,4.438,0,0,0,0,CONFIRMED
K00756.01,11.094,4.59,0.538,1517.5,3.90,427.65,66.5,1.082,6046,4.486,0,0,0,0,CONFIRMED
K00114.01,7.362,5.02,0.762,686.0,2.81,1272.9,39.9,1.190,6227,4.226,0,0,0,0,CONFIRMED
K00041.01,12.816,6.06,0.047,281.0,1.26,1024.0,50.2,1.520,5853,4.140,0,0,0,0,CONFIRMED
K00754.01,1.737,2.41,0.948,10829.0,14.60,3534.2,505.6,0.868,6046,4.486,0,1,0,0,FALSE POSITIVE
K00757.01,19.899,1.78,0.969,8079.2,33.46,4.1,33.3,1.793,5031,4.209,0,1,0,0,FALSE POSITIVE
K00759.01,2.204,0.56,1.276,233.7,39.30,2102.5,9.6,1.280,5700,4.341,1,0,1,0,FALSE POSITIVE
K00760.01,0.687,0.62,1.043,8600.0,21.85,9600.0,210.3,0.946,5846,4.460,0,1,0,1,FALSE POSITIVE
K00762.01,3.522,5.80,1.045,19670.0,90.10,560.0,780.1,2.410,6150,3.890,0,1,1,0,FALSE POSITIVE
K00765.01,0.523,0.91,0.840,124.0,1.12,5200.5,12.1,1.020,5520,4.410,1,0,0,0,FALSE POSITIVE
`

// predictionSample is an unlabeled table in the batch prediction format.
const predictionSample = `name,koi_period,koi_duration,koi_impact,koi_depth,koi_prad,koi_insol,koi_model_snr,koi_srad,koi_steff,koi_slogg,koi_fpflag_nt,koi_fpflag_ss,koi_fpflag_co,koi_fpflag_ec
Candidate-001,15.273,3.12,0.312,742.5,2.41,184.20,28.4,0.981,5620,4.452,0,0,0,0
Candidate-002,231.904,8.77,0.104,2140.0,5.86,1.95,41.7,1.114,5874,4.318,0,0,0,0
Candidate-003,0.842,0.71,1.102,15420.0,27.30,6120.0,310.5,1.640,6420,4.012,0,1,0,0
Candidate-004,4.118,2.05,0.455,398.1,1.64,640.80,17.9,0.792,5105,4.580,0,0,0,0
Candidate-005,1.305,1.44,0.987,5230.0,18.90,2840.1,8.7,2.250,7240,3.710,1,0,1,0
Candidate-006,38.652,5.36,0.221,1012.4,3.12,22.64,52.3,1.031,5790,4.401,0,0,0,0
Candidate-007,7.914,2.68,0.603,489.7,1.98,312.50,11.4,0.904,5312,4.498,0,0,0,1
Candidate-008,112.340,6.95,0.388,1588.0,4.47,5.70,36.0,1.205,6011,4.265,0,0,0,0
`
